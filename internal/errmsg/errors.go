package errmsg

import "errors"

// Error kinds shared across packages. Wrap them with %w and test with errors.Is.
var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNotFound             = errors.New("not found")
	ErrRemoteUnavailable    = errors.New("remote unavailable")
	ErrExternalAuthRequired = errors.New("external service requires authentication")
	ErrValidation           = errors.New("validation failed")
)

// Kind returns the sentinel error kind err wraps, or nil if it wraps none of them.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotAuthenticated,
		ErrNotFound,
		ErrExternalAuthRequired,
		ErrValidation,
		ErrRemoteUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
