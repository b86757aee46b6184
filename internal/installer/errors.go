package installer

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an installer failure.
type Kind int

const (
	// KindOther wraps an arbitrary cause such as a JSON decode failure.
	KindOther Kind = iota
	// KindIO is a filesystem failure. Re-running the whole update is safe.
	KindIO
	// KindVerify means downloaded content failed its size, digest or
	// signature check.
	KindVerify
	// KindVerifier means the checksum metadata itself is malformed.
	KindVerifier
	// KindExtract is a malformed or unsupported archive.
	KindExtract
	// KindNetwork is a transport failure or unexpected HTTP status.
	KindNetwork
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindVerify:
		return "verify"
	case KindVerifier:
		return "verifier"
	case KindExtract:
		return "extract"
	case KindNetwork:
		return "network"
	default:
		return "other"
	}
}

// Step names the orchestrator stage that failed.
type Step string

const (
	StepFetch    Step = "fetch"
	StepCompare  Step = "compare"
	StepResolve  Step = "resolve"
	StepDownload Step = "download"
	StepVerify   Step = "verify"
	StepExtract  Step = "extract"
	StepHook     Step = "hook"
)

// ErrNoAsset is returned when the manifest has no build for the platform.
var ErrNoAsset = errors.New("no build for this platform")

// Error is the error type returned by every installer operation.
type Error struct {
	Kind Kind
	Step Step   // empty outside the orchestrator
	Desc string // human readable description
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Step != "" {
		b.WriteString(string(e.Step))
		b.WriteString(": ")
	}
	b.WriteString(e.Desc)
	if e.Err != nil {
		if e.Desc != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Partial reports whether files were installed before the failure.
// This is the case when the post-install hook failed.
func (e *Error) Partial() bool {
	return e.Step == StepHook
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindOther when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// StepOf returns the step annotated on err, or "" when there is none.
func StepOf(err error) Step {
	var e *Error
	if errors.As(err, &e) {
		return e.Step
	}
	return ""
}

// IsPartial reports whether err is a partial-success hook failure.
func IsPartial(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Partial()
}

func ioError(desc string, err error) *Error {
	return &Error{Kind: KindIO, Desc: desc, Err: err}
}

func verifyError(format string, args ...any) *Error {
	return &Error{Kind: KindVerify, Desc: fmt.Sprintf(format, args...)}
}

// atStep annotates err with step. Errors that already carry a step keep it;
// plain errors are wrapped as KindOther unless kind says otherwise.
func atStep(step Step, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		if e.Step != "" {
			return err
		}
		return &Error{Kind: e.Kind, Step: step, Desc: e.Desc, Err: e.Err}
	}
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Step: step, Err: err}
}
