package kb

import "fmt"

// LoadError reports a missing or malformed knowledge base document file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load knowledge base %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
