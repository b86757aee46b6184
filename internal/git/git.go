// Package git keeps a local clone of a remote repository up to date
// using go-git, with context support and proper error handling.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Common Git errors
var (
	ErrNotAGitRepo = errors.New("not a git repository")
	ErrInvalidRepo = errors.New("invalid git repository")
	ErrNoRemoteURL = errors.New("remote url is required")
)

// Remote describes where a repository is synced from.
type Remote struct {
	URL    string
	Branch string // empty means the remote's default branch
	// SSHKey is a private key file for ssh remotes. Without it the ssh agent
	// is used.
	SSHKey string
}

// IsSSH reports whether the remote uses the ssh transport.
func (r Remote) IsSSH() bool {
	return strings.HasPrefix(r.URL, "ssh://") ||
		(strings.Contains(r.URL, "@") && !strings.Contains(r.URL, "://"))
}

// SyncResult describes what Sync did.
type SyncResult struct {
	Cloned  bool   // the repository did not exist and was cloned
	Updated bool   // HEAD moved
	Head    string // HEAD commit after the sync
}

// Git is the interface for repository operations.
type Git interface {
	IsGitRepo(ctx context.Context) (bool, error)
	GetHeadCommit(ctx context.Context) (string, error)
	Sync(ctx context.Context, remote Remote) (*SyncResult, error)
}

// Client implements the Git interface.
type Client struct {
	repoPath string // Path to the local clone
}

// NewClient creates a new Git client for the given repository path.
func NewClient(repoPath string) *Client {
	return &Client{
		repoPath: repoPath,
	}
}

// Sync clones remote into the repository path if it is not a repository
// yet, and pulls otherwise.
func (c *Client) Sync(ctx context.Context, remote Remote) (*SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if remote.URL == "" {
		return nil, ErrNoRemoteURL
	}

	auth, err := authFor(remote)
	if err != nil {
		return nil, err
	}

	exists, err := c.IsGitRepo(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return c.clone(ctx, remote, auth)
	}
	return c.pull(ctx, remote, auth)
}

func (c *Client) clone(ctx context.Context, remote Remote, auth transport.AuthMethod) (*SyncResult, error) {
	opts := &gogit.CloneOptions{
		URL:  remote.URL,
		Auth: auth,
	}
	if remote.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(remote.Branch)
		opts.SingleBranch = true
	}

	repo, err := gogit.PlainCloneContext(ctx, c.repoPath, false, opts)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", remote.URL, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	return &SyncResult{Cloned: true, Updated: true, Head: ref.Hash().String()}, nil
}

func (c *Client) pull(ctx context.Context, remote Remote, auth transport.AuthMethod) (*SyncResult, error) {
	repo, err := gogit.PlainOpen(c.repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	before, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	opts := &gogit.PullOptions{
		RemoteName: gogit.DefaultRemoteName,
		RemoteURL:  remote.URL,
		Auth:       auth,
	}
	if remote.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(remote.Branch)
		opts.SingleBranch = true
	}

	err = worktree.PullContext(ctx, opts)
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return &SyncResult{Head: before.Hash().String()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", remote.URL, err)
	}

	after, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	return &SyncResult{
		Updated: after.Hash() != before.Hash(),
		Head:    after.Hash().String(),
	}, nil
}

func authFor(remote Remote) (transport.AuthMethod, error) {
	if !remote.IsSSH() {
		return nil, nil
	}
	if remote.SSHKey != "" {
		auth, err := gitssh.NewPublicKeysFromFile("git", remote.SSHKey, "")
		if err != nil {
			return nil, fmt.Errorf("load ssh key: %w", err)
		}
		return auth, nil
	}
	auth, err := gitssh.NewSSHAgentAuth("git")
	if err != nil {
		return nil, fmt.Errorf("ssh remote needs an ssh key or a running ssh agent: %w", err)
	}
	return auth, nil
}

// GetHeadCommit returns the commit hash of HEAD using go-git.
func (c *Client) GetHeadCommit(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpen(c.repoPath)
	if err == gogit.ErrRepositoryNotExists {
		return "", ErrNotAGitRepo
	}
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}

	return ref.Hash().String(), nil
}

// IsGitRepo checks if the path is a valid git repository.
// Returns (true, nil) if valid, (false, nil) if not exists, (false, err) if corrupted.
func (c *Client) IsGitRepo(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	_, err := gogit.PlainOpen(c.repoPath)
	if err == gogit.ErrRepositoryNotExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidRepo, err.Error())
	}
	return true, nil
}
