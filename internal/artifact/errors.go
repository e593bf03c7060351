package artifact

import "fmt"

// NotFoundError reports an artifact whose file is missing from the artifacts directory.
type NotFoundError struct {
	Route    string // Catalog route of the artifact
	Filename string // File that was expected on disk
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact %s: file %s not found", e.Route, e.Filename)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}
