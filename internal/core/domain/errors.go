package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound  = errors.New("deck job not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	ErrEmbedding       = errors.New("embedding failed")
	ErrQueryGeneration = errors.New("query generation failed")
	ErrRetrieval       = errors.New("retrieval failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// SearchError reports which query variant failed during fan-out.
type SearchError struct {
	Variant int
	Query   string
	Err     error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search variant %d (%q): %v", e.Variant, e.Query, e.Err)
}

func (e *SearchError) Unwrap() []error {
	return []error{ErrRetrieval, e.Err}
}
