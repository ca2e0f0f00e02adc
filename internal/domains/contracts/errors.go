package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error so transports can map it to a stable code.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindDuplicate              Kind = "duplicate"
	KindInvalidConfiguration   Kind = "invalid_configuration"
	KindUnauthorized           Kind = "unauthorized"
	KindIllegalStateTransition Kind = "illegal_state_transition"
	KindStaleState             Kind = "stale_state"
	KindUpstreamFailure        Kind = "upstream_failure"
)

// KindError wraps an error with its classification kind.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	return e.Err.Error()
}

func (e *KindError) Unwrap() error {
	return e.Err
}

func NewKindError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

func NotFoundf(format string, args ...any) error {
	return NewKindError(KindNotFound, fmt.Errorf(format, args...))
}

func Duplicatef(format string, args ...any) error {
	return NewKindError(KindDuplicate, fmt.Errorf(format, args...))
}

func Unauthorizedf(format string, args ...any) error {
	return NewKindError(KindUnauthorized, fmt.Errorf(format, args...))
}

func IllegalStatef(format string, args ...any) error {
	return NewKindError(KindIllegalStateTransition, fmt.Errorf(format, args...))
}

func StaleStatef(format string, args ...any) error {
	return NewKindError(KindStaleState, fmt.Errorf(format, args...))
}

func UpstreamFailure(source string, err error) error {
	if err == nil {
		return nil
	}
	return NewKindError(KindUpstreamFailure, fmt.Errorf("%s: %w", source, err))
}

// KindOf returns the classification of err, or an empty Kind when the error
// was never classified by the engine.
func KindOf(err error) Kind {
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	var cfgErr *InvalidConfigurationError
	if errors.As(err, &cfgErr) {
		return KindInvalidConfiguration
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// InvalidConfigurationError aggregates every problem found while validating a
// configuration payload so the caller can correct all of them in one round
// trip instead of resubmitting once per violation.
type InvalidConfigurationError struct {
	Subject  string
	Problems []string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Subject, strings.Join(e.Problems, "; "))
}

func NewInvalidConfiguration(subject string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &InvalidConfigurationError{Subject: subject, Problems: problems}
}
