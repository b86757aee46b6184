package installer

import (
	"crypto"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	// Register the digests the manifests use with crypto.Hash.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// readBufferSize bounds the memory used to feed a reader into a verifier.
const readBufferSize = 8 * 1024

// Verifier validates bytes against an expected value fixed at construction.
// Update absorbs a chunk; Verify finalizes and resets the observed state.
// A mismatch is a KindVerify error, never a panic.
type Verifier interface {
	Update(p []byte)
	Verify() error
}

// FileVerifier is implemented by verifiers that can check a file
// faster than reading it.
type FileVerifier interface {
	VerifyFile(path string) error
}

// UpdateFrom feeds r into v using a fixed size buffer.
func UpdateFrom(v Verifier, r io.Reader) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			v.Update(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ioError("read input", err)
		}
	}
}

// VerifyFile runs v over the file at path.
func VerifyFile(v Verifier, path string) error {
	if fv, ok := v.(FileVerifier); ok {
		return fv.VerifyFile(path)
	}
	return verifyFileContents(v, path)
}

func verifyFileContents(v Verifier, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ioError("open file", err)
	}
	defer f.Close()

	if err := UpdateFrom(v, f); err != nil {
		// Drop the partial state so v stays reusable.
		_ = v.Verify()
		return err
	}
	return v.Verify()
}

// Noop accepts everything.
type Noop struct{}

func (Noop) Update([]byte) {}
func (Noop) Verify() error { return nil }

type optionalVerifier struct {
	v Verifier
}

// Optional returns a verifier that delegates to v, or succeeds when v is nil.
func Optional(v Verifier) Verifier {
	return &optionalVerifier{v: v}
}

func (o *optionalVerifier) Update(p []byte) {
	if o.v != nil {
		o.v.Update(p)
	}
}

func (o *optionalVerifier) Verify() error {
	if o.v == nil {
		return nil
	}
	return o.v.Verify()
}

func (o *optionalVerifier) VerifyFile(path string) error {
	if o.v == nil {
		return nil
	}
	return VerifyFile(o.v, path)
}

// SizeVerifier checks the total number of bytes seen.
type SizeVerifier struct {
	expected uint64
	current  uint64
}

// NewSizeVerifier returns a verifier expecting exactly size bytes.
func NewSizeVerifier(size uint64) *SizeVerifier {
	return &SizeVerifier{expected: size}
}

func (s *SizeVerifier) Update(p []byte) {
	s.current += uint64(len(p))
}

// Verify compares the byte count and resets it, so the verifier can be reused.
func (s *SizeVerifier) Verify() error {
	got := s.current
	s.current = 0
	if got != s.expected {
		return verifyError("size mismatch: expected %d bytes, got %d", s.expected, got)
	}
	return nil
}

// VerifyFile checks the size recorded in the file's metadata.
func (s *SizeVerifier) VerifyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ioError("stat file", err)
	}
	if got := uint64(info.Size()); got != s.expected {
		return verifyError("size mismatch: expected %d bytes, got %d", s.expected, got)
	}
	return nil
}

// DigestVerifier checks a cryptographic digest of the bytes seen.
type DigestVerifier struct {
	alg      crypto.Hash
	state    hash.Hash
	expected []byte
}

// NewDigestVerifier returns a verifier for alg expecting the raw digest.
func NewDigestVerifier(alg crypto.Hash, expected []byte) (*DigestVerifier, error) {
	if !alg.Available() {
		return nil, &Error{Kind: KindVerifier, Desc: fmt.Sprintf("hash algorithm %s is not available", alg)}
	}
	if len(expected) != alg.Size() {
		return nil, &Error{
			Kind: KindVerifier,
			Desc: fmt.Sprintf("invalid %s digest length: expected %d bytes, got %d", alg, alg.Size(), len(expected)),
		}
	}
	return &DigestVerifier{
		alg:      alg,
		state:    alg.New(),
		expected: append([]byte(nil), expected...),
	}, nil
}

// DigestVerifierFromHex is NewDigestVerifier with a hex encoded digest.
func DigestVerifierFromHex(alg crypto.Hash, s string) (*DigestVerifier, error) {
	expected, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	return NewDigestVerifier(alg, expected)
}

// NewSHA256Verifier returns a SHA-256 verifier for a hex digest.
func NewSHA256Verifier(s string) (*DigestVerifier, error) {
	return DigestVerifierFromHex(crypto.SHA256, s)
}

func (d *DigestVerifier) Update(p []byte) {
	d.state.Write(p)
}

// Verify finalizes the digest and always starts a fresh hash state.
func (d *DigestVerifier) Verify() error {
	sum := d.state.Sum(nil)
	d.state = d.alg.New()
	if subtle.ConstantTimeCompare(sum, d.expected) != 1 {
		return verifyError("%s mismatch: expected %x, got %x", digestName(d.alg), d.expected, sum)
	}
	return nil
}

func digestName(alg crypto.Hash) string {
	switch alg {
	case crypto.SHA256:
		return "sha256"
	case crypto.SHA512:
		return "sha512"
	default:
		return alg.String()
	}
}

type allVerifier struct {
	members []Verifier
}

// All combines verifiers: every chunk reaches every member and
// Verify succeeds only if every member does.
func All(vs ...Verifier) Verifier {
	members := make([]Verifier, 0, len(vs))
	for _, v := range vs {
		if v == nil {
			continue
		}
		// Flatten nested combinators.
		if a, ok := v.(*allVerifier); ok {
			members = append(members, a.members...)
			continue
		}
		members = append(members, v)
	}
	return &allVerifier{members: members}
}

func (a *allVerifier) Update(p []byte) {
	for _, v := range a.members {
		v.Update(p)
	}
}

// Verify runs every member so that every member's state is reset.
func (a *allVerifier) Verify() error {
	var errs []error
	for _, v := range a.members {
		if err := v.Verify(); err != nil {
			errs = append(errs, err)
		}
	}
	return joinVerify(errs)
}

// VerifyFile lets members with a metadata fast path skip reading the file.
// The file is read once for the remaining members.
func (a *allVerifier) VerifyFile(path string) error {
	var errs []error
	var streamed []Verifier
	for _, v := range a.members {
		if fv, ok := v.(FileVerifier); ok {
			if err := fv.VerifyFile(path); err != nil {
				if KindOf(err) != KindVerify {
					return err
				}
				errs = append(errs, err)
			}
			continue
		}
		streamed = append(streamed, v)
	}
	if len(streamed) > 0 {
		if err := verifyFileContents(&allVerifier{members: streamed}, path); err != nil {
			if KindOf(err) != KindVerify {
				return err
			}
			errs = append(errs, err)
		}
	}
	return joinVerify(errs)
}

func joinVerify(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &Error{Kind: KindVerify, Desc: "multiple checks failed", Err: errors.Join(errs...)}
}
