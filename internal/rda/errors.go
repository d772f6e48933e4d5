package rda

import "fmt"

// AuthError represents a rejected login. The server's response body is kept
// because the RDA login endpoint reports the reason in the page text rather
// than in the status line.
type AuthError struct {
	StatusCode int    // HTTP status returned by the login endpoint
	Body       string // Response body, truncated
	Err        error  // Underlying error, if any
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d)", e.StatusCode)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
