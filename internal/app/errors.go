package app

import "errors"

// Sentinel errors. Messages on user-facing sentinels are returned to clients
// verbatim; anything wrapped beyond these surfaces only a generic message.
var (
	// ErrValidation is returned when a required field is empty.
	ErrValidation = errors.New("username and password are required")

	// ErrRegistration covers duplicate usernames and store-level failures;
	// the two causes are deliberately not distinguished for the caller.
	ErrRegistration = errors.New("registration failed: username may already be taken")

	// ErrUserNotFound and ErrInvalidCredentials are distinct on purpose:
	// the login flow reports unknown users differently from bad passwords.
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect password")

	// ErrQuotaExceeded rejects unauthenticated analyses past the demo limit.
	ErrQuotaExceeded = errors.New("free demo limit reached, please log in to continue")

	// Upload/analysis pipeline rejections, one per terminal state.
	ErrNoFile            = errors.New("No file uploaded")
	ErrUnsupportedFormat = errors.New("Unsupported file format")
	ErrExtraction        = errors.New("Could not extract text from the file")
	ErrCompletion        = errors.New("Analysis failed")
	ErrResponseFormat    = errors.New("AI response format error. Please retry.")
)
