package errors

import "errors"

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrWorkUnitNotFound       = errors.New("work unit not found")
	ErrAnnotationNotFound     = errors.New("annotation not found")
	ErrInvalidAnnotationInput = errors.New("annotation input is invalid")
	ErrWorkUnitTaskMismatch   = errors.New("work unit does not belong to task")
	ErrDuplicateWorkUnit      = errors.New("work unit already recorded for assignment")
	ErrCallbackBaseURLMissing = errors.New("public base url is not configured")
)
