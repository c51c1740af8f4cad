package exchange

import "errors"

var (
	ErrEmptyMessage        = errors.New("message is empty")
	ErrConversationNotOpen = errors.New("conversation is not open")
)

// FailureMessage is shown inline in the conversation view when an exchange
// fails.
const FailureMessage = "Could not get an answer right now. Please try again."

// ExchangeError is a failed send. Nothing was changed locally.
type ExchangeError struct {
	Message string
	Cause   error
}

func (e *ExchangeError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

func newExchangeError(cause error) *ExchangeError {
	return &ExchangeError{Message: FailureMessage, Cause: cause}
}
