package domain

import "errors"

var (
	// ErrSubscriptionFailed is returned when subscription to chain logs fails
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrUnknownEventType is returned by the dispatcher for an event type
	// without a handler
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrOwningChainUnavailable is returned when the token contract's owning
	// quest chain cannot be read; the event must be redelivered
	ErrOwningChainUnavailable = errors.New("owning quest chain unavailable")
)
