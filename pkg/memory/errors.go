package memory

// memoryError is a simple error type for the memory package
type memoryError string

func (e memoryError) Error() string { return string(e) }

// Errors for tensor handle operations
const (
	ErrReadOnly        = memoryError("tensor handle is read-only")
	ErrReleased        = memoryError("tensor handle was released")
	ErrWriteOutOfRange = memoryError("write exceeds tensor size")
	ErrSizeMismatch    = memoryError("data size does not match tensor info")
	ErrWriterClaimed   = memoryError("tensor handle already has a writer")
)
