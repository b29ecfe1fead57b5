package types

import "fmt"

// NotFoundError marks a lookup of an unknown entity. It is fatal to the
// call that raised it and is never retried.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// TokenExchangeError is returned when the identity provider rejects a
// refresh-token exchange. It carries the HTTP status and response body so
// operators can tell an invalid grant from a throttled client.
type TokenExchangeError struct {
	Profile string
	Status  int
	Body    string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %d - %s", e.Profile, e.Status, e.Body)
}

// ProtocolError is a Graph HTTP failure or an IMAP connection, auth or
// search failure. It fails the protocol branch and triggers fallback.
type ProtocolError struct {
	Protocol string
	Status   int
	Body     string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s protocol error: %v", e.Protocol, e.Err)
	}
	return fmt.Sprintf("%s protocol error: %d - %s", e.Protocol, e.Status, e.Body)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AggregateError is surfaced when both protocols are exhausted and the
// cache holds nothing for the account and folder. Last is the terminal
// (IMAP branch) failure.
type AggregateError struct {
	Last error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("both Graph API and IMAP failed: %v", e.Last)
}

func (e *AggregateError) Unwrap() error { return e.Last }
