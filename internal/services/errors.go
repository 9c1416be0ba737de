// Package services defines the business logic for accounts, listings,
// conversations, messages, tokens, and notifications. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer. Rejected state transitions (recall outside
// its window, reuse of a dead token) are ordinary errors here, not faults:
// they describe an operation the domain refuses, while database failures
// propagate as-is.
package services

import "errors"

// Account / auth errors.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned on login with a wrong email/password
	// pair. Deliberately indistinguishable between the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registering an already-used email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrEmailNotVerified is returned on login before email verification.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrTokenInvalid is returned when a presented token is unknown, already
	// consumed, deactivated, or past its expiry.
	ErrTokenInvalid = errors.New("token invalid or expired")
)

// Listing errors.
var (
	// ErrListingNotFound indicates the requested listing does not exist.
	ErrListingNotFound = errors.New("listing not found")

	// ErrInvalidListingKind is returned for a kind outside rental, wanted,
	// pass, join.
	ErrInvalidListingKind = errors.New("invalid listing kind")

	// ErrForbidden is returned when a caller tries to mutate a resource they
	// do not own.
	ErrForbidden = errors.New("not allowed")
)

// Conversation / message errors.
var (
	// ErrConversationNotFound indicates the conversation does not exist or
	// the caller is not a participant.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrSelfConversation is returned when a user tries to open a
	// conversation with themselves.
	ErrSelfConversation = errors.New("cannot message yourself")

	// ErrMessageNotFound indicates the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEmptyBody is returned when a message body is blank.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrTooLong is returned when a message body exceeds the configured
	// maximum length.
	ErrTooLong = errors.New("message body too long")

	// ErrNotSender is returned when someone other than the original sender
	// attempts a recall.
	ErrNotSender = errors.New("only the sender can recall a message")

	// ErrRecallWindowClosed is returned when a recall arrives after the
	// message's recall deadline.
	ErrRecallWindowClosed = errors.New("recall window closed")

	// ErrAlreadyRecalled is returned when the message was recalled before;
	// the recalled state is terminal.
	ErrAlreadyRecalled = errors.New("message already recalled")

	// ErrNotificationNotFound indicates the notification does not exist or
	// belongs to another user.
	ErrNotificationNotFound = errors.New("notification not found")
)
