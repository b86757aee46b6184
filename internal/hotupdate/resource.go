package hotupdate

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/maaup/internal/git"
	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
)

// ResourceSync keeps the resource repository clone current.
type ResourceSync struct {
	Git    git.Git
	Remote git.Remote
	// AutoUpdate allows syncs triggered after a core update.
	AutoUpdate bool
	// WarnOnFailure logs sync failures instead of returning them.
	WarnOnFailure bool
	Logger        installer.Logger
}

// Run syncs the repository. An automatic run is skipped unless AutoUpdate
// is set; a skipped or tolerated failure returns a nil result.
func (s *ResourceSync) Run(ctx context.Context, auto bool) (*git.SyncResult, error) {
	logger := s.Logger
	if logger == nil {
		logger = installer.NopLogger()
	}

	if auto && !s.AutoUpdate {
		logger.Debug("resource auto update disabled")
		return nil, nil
	}

	logger.Info("updating resource repository", "url", s.Remote.URL, "branch", s.Remote.Branch)
	res, err := s.Git.Sync(ctx, s.Remote)
	if err != nil {
		err = fmt.Errorf("update resource repository: %w", err)
		if s.WarnOnFailure {
			logger.Warn("resource update failed", "error", err)
			return nil, nil
		}
		return nil, err
	}

	switch {
	case res.Cloned:
		logger.Info("resource repository cloned", "head", res.Head)
	case res.Updated:
		logger.Info("resource repository updated", "head", res.Head)
	default:
		logger.Info("resource repository already up to date", "head", res.Head)
	}
	return res, nil
}
