// Package pipeline implements the three phases of a run: planning,
// extraction, and aggregation. Extraction contains every per-source
// failure; planning and aggregation failures are fatal to the run.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/thinkscotty/medialens/internal/browser"
	"github.com/thinkscotty/medialens/internal/schema"
)

// ErrorKind is the closed set of per-source failure classes. Classification
// is by error type, never by string inspection.
type ErrorKind string

const (
	KindValidation              ErrorKind = "ValidationError"
	KindMissingStructuredOutput ErrorKind = "MissingStructuredOutput"
	KindTool                    ErrorKind = "ToolError"
	KindUnexpected              ErrorKind = "UnexpectedError"
)

// MissingStructuredOutputError reports an agent response that lacked the
// expected structured_response payload.
type MissingStructuredOutputError struct {
	Content string // truncated final message content, for logs
}

func (e *MissingStructuredOutputError) Error() string {
	return "no structured_response in agent output"
}

// Classify maps an extraction failure onto its ErrorKind.
func Classify(err error) ErrorKind {
	var vErr *schema.ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	var mErr *MissingStructuredOutputError
	if errors.As(err, &mErr) {
		return KindMissingStructuredOutput
	}
	var tErr *browser.ToolError
	if errors.As(err, &tErr) {
		return KindTool
	}
	return KindUnexpected
}

// errorString renders the human-readable "<ErrorKind>: <message>" form
// stored on failed SourceProcessingResults.
func errorString(err error) string {
	return fmt.Sprintf("%s: %s", Classify(err), err.Error())
}
