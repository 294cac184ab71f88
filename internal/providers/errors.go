package providers

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// ErrAttachmentsUnsupported is returned by providers that cannot read inline documents.
var ErrAttachmentsUnsupported = errors.New("provider does not accept document attachments")

func errKeyMissing(provider, alias string) error {
	return fmt.Errorf("%s key missing for alias %q", provider, alias)
}

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "resource_exhausted"):
		return ErrorQuota
	case strings.Contains(e, "429"), strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"),
		strings.Contains(e, "too many requests"), strings.HasSuffix(e, " rate"):
		return ErrorRate
	case strings.Contains(e, "deadline exceeded"), strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"),
		strings.Contains(e, "unavailable"), strings.Contains(e, "error 500"), strings.Contains(e, "error 502"),
		strings.Contains(e, "error 503"), strings.Contains(e, "error 504"):
		return ErrorTransient
	case strings.Contains(e, "context length"), strings.Contains(e, "context window"), strings.Contains(e, "context too long"),
		strings.Contains(e, "too long"), strings.Contains(e, "token count"):
		return ErrorContext
	default:
		return ErrorPermanent
	}
}
