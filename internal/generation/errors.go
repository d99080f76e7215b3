package generation

import (
	"context"
	"errors"
	"net"
	"strings"
)

// The backing service fails in one of four ways; everything the retry
// loop decides hangs off this classification.
var (
	ErrNetwork          = errors.New("generation: network failure")
	ErrModelUnavailable = errors.New("generation: model unavailable")
	ErrQuotaExceeded    = errors.New("generation: quota exceeded")
)

type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureTransient
	FailureModelUnavailable
	FailureQuota
	FailureOther
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureTransient:
		return "transient"
	case FailureModelUnavailable:
		return "model_unavailable"
	case FailureQuota:
		return "quota"
	default:
		return "other"
	}
}

var modelUnavailablePatterns = []string{
	"model unavailable",
	"model_not_found",
	"not_found_error",
	"model not found",
	"does not support",
	"unknown model",
}

var quotaPatterns = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
}

// Classify buckets a service error. Typed sentinels win; otherwise the
// error text is pattern-matched, since upstream SDKs surface most of
// these conditions as opaque messages.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrModelUnavailable) {
		return FailureModelUnavailable
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return FailureQuota
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureTransient
	}

	msg := strings.ToLower(err.Error())
	for _, p := range modelUnavailablePatterns {
		if strings.Contains(msg, p) {
			return FailureModelUnavailable
		}
	}
	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return FailureQuota
		}
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") ||
		strings.Contains(msg, "overloaded") || strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") {
		return FailureTransient
	}
	return FailureOther
}
