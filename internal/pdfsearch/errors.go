package pdfsearch

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigConflict means the reserved element set name is already taken.
	ErrConfigConflict = errors.New("config conflict")
	// ErrMissingDependency means the extraction binary cannot be found.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrNotInstalled means the PDF Search element is absent.
	ErrNotInstalled = errors.New("pdf search not installed")
	// ErrItemGone means the item to refresh no longer exists in the store.
	ErrItemGone = errors.New("item not found")
)

// ExtractionError reports a failed extraction of one file. It never aborts a refresh.
type ExtractionError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := "extract " + e.Path
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError wraps a host store failure; it is fatal to the refresh in progress.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
