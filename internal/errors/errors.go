package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies pipeline failures.
type ErrorCode string

const (
	// Geometry
	ErrorInvalidRegion ErrorCode = "INVALID_REGION"
	ErrorEmptyInput    ErrorCode = "EMPTY_INPUT"

	// Segmentation
	ErrorThresholdDegenerate ErrorCode = "THRESHOLD_DEGENERATE"

	// Collaborators
	ErrorOCRFailed      ErrorCode = "OCR_FAILED"
	ErrorTaggerFailed   ErrorCode = "TAGGER_FAILED"
	ErrorKeywordsFailed ErrorCode = "KEYWORDS_FAILED"

	// Input and setup
	ErrorSourceFailed  ErrorCode = "SOURCE_FAILED"
	ErrorConfigInvalid ErrorCode = "CONFIG_INVALID"
)

var (
	// ErrEmptyInput is returned when an operation that needs at least one
	// element is called with none.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidRegion marks a region with non-positive width or height.
	ErrInvalidRegion = errors.New("invalid region")
)

// PipelineError carries the page and chunk a failure belongs to.
type PipelineError struct {
	Code      ErrorCode
	Message   string
	Page      string
	Chunk     string
	Timestamp time.Time
	Cause     error
}

func (e *PipelineError) Error() string {
	where := e.Page
	if e.Chunk != "" {
		where = fmt.Sprintf("%s %s", e.Page, e.Chunk)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s [%s] (caused by: %v)", e.Code, e.Message, where, e.Cause)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, where)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewOCRFailedError(page, chunk string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorOCRFailed,
		Message:   "text recognition failed",
		Page:      page,
		Chunk:     chunk,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewTaggerFailedError(page, chunk string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorTaggerFailed,
		Message:   "tag classification failed",
		Page:      page,
		Chunk:     chunk,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewKeywordsFailedError(cyoa string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorKeywordsFailed,
		Message:   "keyword extraction failed",
		Page:      cyoa,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewSourceFailedError(page string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorSourceFailed,
		Message:   "page could not be loaded",
		Page:      page,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewConfigInvalidError(field string, value interface{}) *PipelineError {
	return &PipelineError{
		Code:      ErrorConfigInvalid,
		Message:   fmt.Sprintf("invalid value for %s: %v", field, value),
		Timestamp: time.Now(),
	}
}

// IsRecoverable reports whether err is a collaborator or page failure that
// only costs the contribution of one chunk or page.
func IsRecoverable(err error) bool {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code {
	case ErrorOCRFailed, ErrorTaggerFailed, ErrorKeywordsFailed, ErrorSourceFailed:
		return true
	}
	return false
}

// CodeOf returns the code of the first PipelineError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}
