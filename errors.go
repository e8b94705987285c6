package swap

import "errors"

var (
	// ErrInvalidParam represents an invalid parameter error
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrInvalidDelegate is returned when an approver tries to authorize itself
	ErrInvalidDelegate = errors.New("invalid delegate")

	// ErrInvalidExpiry is returned when an authorization expiry is not in the future
	ErrInvalidExpiry = errors.New("invalid expiry")

	// ErrOrderExpired is returned when the order expiry has passed
	ErrOrderExpired = errors.New("order expired")

	// ErrOrderAlreadyTaken is returned when the take identifier was already settled
	ErrOrderAlreadyTaken = errors.New("order already taken")

	// ErrOrderAlreadyCanceled is returned when the order identifiers were canceled
	ErrOrderAlreadyCanceled = errors.New("order already canceled")

	// ErrOrderUnavailable is the combined taken-or-canceled rejection of the simple path
	ErrOrderUnavailable = errors.New("order unavailable")

	// ErrSenderUnauthorized is returned when the caller may not act for the taker
	ErrSenderUnauthorized = errors.New("sender unauthorized")

	// ErrSignerUnauthorized is returned when the signer may not sign for the maker
	ErrSignerUnauthorized = errors.New("signer unauthorized")

	// ErrSignatureInvalid is returned when the signature does not match the order
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrValueMismatch is returned when attached value differs from a native taker leg
	ErrValueMismatch = errors.New("value mismatch")

	// ErrUnexpectedValue is returned when value is attached to a token-only swap
	ErrUnexpectedValue = errors.New("unexpected value")
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match ErrInvalidParam
func (e *InvalidParamError) Unwrap() error {
	return ErrInvalidParam
}
