package dispatch

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// classifyReason buckets a transport failure for metrics and logs. The
// Result still reports every transport failure as 500.
func classifyReason(err error) string {
	if err == nil {
		return "other"
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &dnsErr):
		return "dns_error"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "timeout"):
		return "timeout"
	case strings.Contains(errLower, "connection refused"):
		return "connection_refused"
	case strings.Contains(errLower, "no such host") || strings.Contains(errLower, "dns"):
		return "dns_error"
	case strings.Contains(errLower, "unsupported protocol scheme") || strings.Contains(errLower, "missing protocol scheme"):
		return "invalid_url"
	}
	return "network"
}
