package files

import "errors"

// Errors returned by Service. The HTTP layer maps them to status codes.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrNoContent    = errors.New("folder has no content")
	ErrStorage      = errors.New("storage write failed")
)

// ValidationError is a user-fixable input problem tied to one field. Message
// is shown to the client verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrParentNotFound  = &ValidationError{Field: "parentId", Message: "Parent not found"}
	ErrParentNotFolder = &ValidationError{Field: "parentId", Message: "Parent is not a folder"}
)
