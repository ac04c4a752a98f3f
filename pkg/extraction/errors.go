package extraction

import (
	"context"
	"errors"

	"github.com/jmylchreest/pdfstruct/pkg/llm"
	"github.com/jmylchreest/pdfstruct/pkg/pdftext"
	"github.com/jmylchreest/pdfstruct/pkg/template"
)

var (
	// ErrAuthentication is returned when no credential is available or the
	// provider rejects it.
	ErrAuthentication = errors.New("authentication failed")

	// ErrService is returned for any other provider failure, including
	// network errors and replies that cannot be parsed.
	ErrService = errors.New("extraction service error")
)

// ErrorKind classifies a failure in a DocumentResult.
type ErrorKind string

const (
	KindUnknownTemplate ErrorKind = "unknown_template"
	KindInvalidTemplate ErrorKind = "invalid_template"
	KindUnreadablePDF   ErrorKind = "unreadable_pdf"
	KindAuthentication  ErrorKind = "authentication"
	KindService         ErrorKind = "service"
	KindCancelled       ErrorKind = "cancelled"
	KindInternal        ErrorKind = "internal"
)

// Kind maps an error to its ErrorKind. It returns "" for a nil error.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, template.ErrUnknownTemplate):
		return KindUnknownTemplate
	case errors.Is(err, template.ErrInvalidTemplate):
		return KindInvalidTemplate
	case errors.Is(err, pdftext.ErrUnreadablePDF):
		return KindUnreadablePDF
	case errors.Is(err, ErrAuthentication), errors.Is(err, llm.ErrMissingAPIKey), llm.IsAuthError(err):
		return KindAuthentication
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrService):
		return KindService
	default:
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			return KindService
		}
		return KindInternal
	}
}
