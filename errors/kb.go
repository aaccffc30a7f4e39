package errors

// Sentinel errors for the knowledge store.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrapf() to add the offending path or KB name.
var (
	// ErrInvalidPath indicates a path that is empty or has a malformed label
	ErrInvalidPath = New("invalid path")

	// ErrPathNotFound indicates the path has no entry in the store
	ErrPathNotFound = New("path not found")

	// ErrKBAlreadyExists indicates add_kb was called twice for the same name
	ErrKBAlreadyExists = New("knowledge base already exists")

	// ErrKBNotFound indicates the named knowledge base is not tracked
	ErrKBNotFound = New("knowledge base not found")

	// ErrPathAlreadyExists indicates a scope path was already opened in this KB
	ErrPathAlreadyExists = New("path already exists")

	// ErrValidation indicates a value failed a format check
	ErrValidation = New("validation error")

	// ErrDatabase marks a failure reported by the backing store
	ErrDatabase = New("database error")

	// ErrNoWorkingKB indicates no knowledge base has been selected
	ErrNoWorkingKB = New("no working knowledge base selected")

	// ErrPathEmpty indicates the construction stack has nothing to pop
	ErrPathEmpty = New("construction path is empty")

	// ErrNotEnoughElements indicates a close found a name but no label beneath it
	ErrNotEnoughElements = New("not enough elements on construction path")

	// ErrAssertion indicates a close did not match the open scope
	ErrAssertion = New("assertion error")

	// ErrInstallationCheckFailed indicates a KB still has open scopes
	ErrInstallationCheckFailed = New("installation check failed")
)

// Database marks err as a backing-store failure. The original message is kept
// and op is prepended as context. Returns nil for a nil err.
func Database(err error, op string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, op), ErrDatabase)
}

// IsInvalidPath checks if an error is or wraps ErrInvalidPath
func IsInvalidPath(err error) bool {
	return err != nil && Is(err, ErrInvalidPath)
}

// IsPathNotFound checks if an error is or wraps ErrPathNotFound
func IsPathNotFound(err error) bool {
	return err != nil && Is(err, ErrPathNotFound)
}

// IsKBNotFound checks if an error is or wraps ErrKBNotFound
func IsKBNotFound(err error) bool {
	return err != nil && Is(err, ErrKBNotFound)
}

// IsPathAlreadyExists checks if an error is or wraps ErrPathAlreadyExists
func IsPathAlreadyExists(err error) bool {
	return err != nil && Is(err, ErrPathAlreadyExists)
}

// IsDatabaseError checks if an error is or wraps ErrDatabase
func IsDatabaseError(err error) bool {
	return err != nil && Is(err, ErrDatabase)
}

// IsProtocolError reports whether err is one of the construction misuse errors.
func IsProtocolError(err error) bool {
	return err != nil && IsAny(err, ErrNoWorkingKB, ErrPathEmpty, ErrNotEnoughElements, ErrAssertion)
}
