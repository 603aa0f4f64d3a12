package errs

// Error taxonomy for the relay gateway. Only ErrTokenInvalid ever reaches a
// client; everything else is log-only.
var (
	ErrTokenInvalid = NewCodeError(500, "Please provide correct auth token")
	ErrConnNotFound = NewCodeError(602, "connection not found")
)
