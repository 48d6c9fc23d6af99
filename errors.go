package regioncache

import (
	"errors"
	"fmt"
)

// ErrLockNotAcquired is returned by Lock when the wait budget elapses while
// another holder keeps the lease.
var ErrLockNotAcquired = errors.New("regioncache: lock not acquired")

// errSyncExhausted means the generation re-sync loop ran out of attempts.
// Only possible under a pathological clear-storm; absorbed at the Region
// boundary like a store outage.
var errSyncExhausted = errors.New("regioncache: generation sync retries exhausted")

// DecodeError reports a stored payload that passed wire validation but could
// not be decoded by the region's codec. The broken entry has already been
// deleted from the store when this is returned.
type DecodeError struct {
	Region string
	ID     string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("regioncache: decode %q in region %q: %v", e.ID, e.Region, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClearError carries the partial failures of a Clear. It is reported through
// hooks and logs; Clear itself stays best-effort and returns nil.
type ClearError struct {
	Region     string
	AdvanceErr error
	DelErr     error
}

func (e *ClearError) Error() string {
	switch {
	case e.AdvanceErr != nil && e.DelErr != nil:
		return fmt.Sprintf("clear %q failed: generation advance and registry delete failed: advance=%v; delete=%v",
			e.Region, e.AdvanceErr, e.DelErr)
	case e.AdvanceErr != nil:
		return fmt.Sprintf("clear %q: generation advance failed: %v", e.Region, e.AdvanceErr)
	case e.DelErr != nil:
		return fmt.Sprintf("clear %q: registry delete failed: %v", e.Region, e.DelErr)
	default:
		return fmt.Sprintf("clear %q: unknown error", e.Region)
	}
}

func (e *ClearError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.AdvanceErr != nil {
		errs = append(errs, e.AdvanceErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
