package reference

// referenceError is a simple error type for the reference package
type referenceError string

func (e referenceError) Error() string { return string(e) }

// Errors for network execution
const (
	ErrNetworkClosed     = referenceError("network is closed")
	ErrUnknownBinding    = referenceError("unknown binding id")
	ErrMissingInput      = referenceError("missing required input")
	ErrInputSizeMismatch = referenceError("input size mismatch")
)
