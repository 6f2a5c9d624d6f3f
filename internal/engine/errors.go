package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by sources, stores and services.
var (
	ErrSourceUnavailable = errors.New("transcript source unavailable")
	ErrSourceTransient   = errors.New("transcript source transient failure")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrSchemaConflict    = errors.New("index schema conflict")
)

// SourceErrorKind classifies a transcript/metadata source failure.
type SourceErrorKind string

const (
	KindUnavailable      SourceErrorKind = "unavailable"
	KindCaptionsDisabled SourceErrorKind = "captions_disabled"
	KindNotFound         SourceErrorKind = "not_found"
	KindQuotaExceeded    SourceErrorKind = "quota_exceeded"
	KindRateLimited      SourceErrorKind = "rate_limited"
	KindNetwork          SourceErrorKind = "network_error"
)

// SourceError is returned by transcript sources and collection expanders.
// It matches ErrSourceTransient for rate-limit and network kinds and
// ErrSourceUnavailable for everything else.
type SourceError struct {
	VideoID string
	Kind    SourceErrorKind
	Err     error
}

// NewSourceError builds a SourceError; err may be nil.
func NewSourceError(videoID string, kind SourceErrorKind, err error) *SourceError {
	return &SourceError{VideoID: videoID, Kind: kind, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.VideoID, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.VideoID, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Transient reports whether retrying later in the same run may succeed.
func (e *SourceError) Transient() bool {
	return e.Kind == KindRateLimited || e.Kind == KindNetwork
}

func (e *SourceError) Is(target error) bool {
	switch target {
	case ErrSourceTransient:
		return e.Transient()
	case ErrSourceUnavailable:
		return !e.Transient()
	}
	return false
}

// StoreError wraps a backend error so it matches ErrStoreUnavailable.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
