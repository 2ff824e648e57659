package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
)

// ErrNotConfigured is returned when a billing operation needs a subscription
// price but none was configured.
var ErrNotConfigured = errors.New("billing price not configured")

// ProviderError carries a message from the payment provider that is safe to
// show to the caller.
type ProviderError struct {
	Msg string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing provider: %s", e.Msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// providerError wraps err, surfacing the provider's human-readable message
// when one is present.
func providerError(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Msg != "" {
		return &ProviderError{Msg: sErr.Msg, Err: err}
	}
	return &ProviderError{Msg: "payment provider error", Err: err}
}
