package lifecycle

import (
	"errors"
	"fmt"

	"github.com/kiranshivaraju/rpohub/internal/store"
)

// Error kinds returned by every lifecycle operation. Handlers map them to
// HTTP status codes with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("persistence unavailable")
)

// translate maps store errors onto lifecycle error kinds. Errors that are
// already lifecycle kinds pass through unchanged.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrConflict),
		errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrPendingApprovalExists):
		return fmt.Errorf("%s: %w: job already has a pending approval", op, ErrConflict)
	case errors.Is(err, store.ErrInvalidReference):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
