// Package client implements the conversational session core for the Akuru
// chat API: credential/guest session state, the conversation directory,
// and the message stream controller that assembles sectioned streaming
// replies. Presentation layers consume snapshots and emit intents; all
// state transitions live here.
package client

import "fmt"

// AuthError is a definitive 401/403 from the server: the token is invalid
// or expired.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (status %d)", e.Status)
}

// NetworkError wraps a fetch-level failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response with whatever body came with it.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Body)
}

// ParseError marks malformed or empty JSON where a body was expected.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// StreamError is an aborted or failed chunked read. Partial preserves
// whatever text arrived before the failure.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// ConversationCreationError is distinguished from generic send errors
// because a failed create blocks sending entirely.
type ConversationCreationError struct {
	Err error
}

func (e *ConversationCreationError) Error() string {
	return fmt.Sprintf("conversation creation failed: %v", e.Err)
}

func (e *ConversationCreationError) Unwrap() error { return e.Err }
