package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stable error codes crossing into the transport layers.
const (
	CodeValidation         = "VALIDATION"
	CodeNotFound           = "NOT_FOUND"
	CodeNavTimeout         = "NAV_TIMEOUT"
	CodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	CodeAnalysisFailure    = "ANALYSIS_FAILURE"
)

// CodedError is a typed error used for stable transport mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// classifyRunError wraps navigation and pipeline failures: timeouts surface
// under a dedicated code, everything else becomes a generic analysis failure
// carrying the original message.
func classifyRunError(url string, err error) error {
	var coded *CodedError
	if errors.As(err, &coded) {
		return err
	}
	if isTimeout(err) {
		return newError(CodeNavTimeout, fmt.Sprintf("navigation timed out for %s", url), err)
	}
	return newError(CodeAnalysisFailure, fmt.Sprintf("analysis failed for %s", url), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}
