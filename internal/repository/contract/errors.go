package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-multierror"
)

var (
	// ErrNoteNotFound is used above the repository to signal a note that does
	// not resolve within the caller's org.
	ErrNoteNotFound = errors.New("note not found")

	// ErrDuplicateId means a create collided with an existing primary key.
	// Retry with a fresh id.
	ErrDuplicateId = errors.New("duplicate note id")

	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means concurrent writers kept changing the note while an
	// update was being applied. The caller may retry.
	ErrConflict = errors.New("note was modified concurrently")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// ConfigError reports backend settings missing at construction time.
type ConfigError struct {
	Backend string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s store configuration: %v", e.Backend, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError aggregates one error per missing setting.
func NewConfigError(backend string, missing ...string) *ConfigError {
	if len(missing) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, m := range missing {
		result = multierror.Append(result, fmt.Errorf("%s is required", m))
	}
	result.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return strings.Join(msgs, "; ")
	}
	return &ConfigError{Backend: backend, Err: result}
}

var transientCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"RequestLimitExceeded":                   {},
	"ThrottlingException":                    {},
	"InternalServerError":                    {},
	"ServiceUnavailable":                     {},
	"LimitExceededException":                 {},
	"TransactionInProgressException":         {},
}

// IsTransient reports whether err is a storage fault the caller may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}
	return false
}
