package engine

import (
	"errors"
	"fmt"

	"github.com/microscaler/secret-manager-controller/internal/cache"
	"github.com/microscaler/secret-manager-controller/internal/envelope"
	"github.com/microscaler/secret-manager-controller/internal/overlay"
	"github.com/microscaler/secret-manager-controller/internal/parser"
	"github.com/microscaler/secret-manager-controller/internal/provider"
)

// ErrorKind is the error taxonomy §7 classifies every stage failure into.
// The engine decides retry policy and status reporting from the kind alone;
// nothing below the engine makes that call.
type ErrorKind string

const (
	KindUserError       ErrorKind = "user-error"
	KindTransientInfra  ErrorKind = "transient-infra"
	KindCorruptArtifact ErrorKind = "corrupt-artifact"
	KindFatal           ErrorKind = "fatal"
)

// StageError wraps a stage failure with its classified kind and the stage
// name it occurred in, so the engine can report (phase, condition, metric,
// log) without re-deriving the kind.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Classify maps an error returned by a stage to its taxonomy kind. It
// recognizes the structured errors each internal package defines; anything
// unrecognized is treated as transient-infra, since surfacing an unknown
// failure as permanent would block a retry that might well succeed.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var corrupt *cache.CorruptArtifactError
	if errors.As(err, &corrupt) {
		return KindCorruptArtifact
	}

	var parseErr *parser.ParseError
	var leafErr *parser.NonScalarLeafError
	if errors.As(err, &parseErr) || errors.As(err, &leafErr) {
		return KindUserError
	}

	var keyNotFound *envelope.KeyNotFoundError
	var decryptFailed *envelope.DecryptionFailedError
	if errors.As(err, &keyNotFound) || errors.As(err, &decryptFailed) {
		return KindUserError
	}

	var buildErr *overlay.BuildError
	if errors.As(err, &buildErr) {
		return KindUserError
	}

	var invalid *InvalidSpecError
	if errors.As(err, &invalid) {
		return KindUserError
	}

	var unauthorized *provider.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return KindUserError
	}

	var sourceNotReady *SourceNotReadyError
	if errors.As(err, &sourceNotReady) {
		return KindTransientInfra
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return KindFatal
	}

	return KindTransientInfra
}

// InvalidSpecError reports a structurally invalid ManagedConfiguration spec:
// a missing required field or an unknown provider or source kind.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string { return fmt.Sprintf("invalid-spec: %s", e.Reason) }

// SourceNotReadyError reports that the referenced source object has not yet
// populated status.artifact.
type SourceNotReadyError struct {
	Kind, Name, Namespace string
}

func (e *SourceNotReadyError) Error() string {
	return fmt.Sprintf("source-not-ready: %s %s/%s", e.Kind, e.Namespace, e.Name)
}

// PanicError wraps a recovered panic from within a reconciliation: a
// programming error or unreachable state, never a condition callers should
// retry their way out of.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
