// Package health provides the health status surface exposed by namestream
package health

import (
	"regexp"
	"time"
)

// Pre-compiled regexes for error message sanitization
var (
	httpURLRegex    = regexp.MustCompile(`https?://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status represents the health state of a component or the whole service
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related counters
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	RequestsProcessed int64         `json:"requests_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

// Healthy builds a healthy status for a component
func Healthy(component string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
}

// Unhealthy builds an unhealthy status carrying a sanitized message
func Unhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    StatusUnhealthy,
		Message:   SanitizeMessage(message),
		Timestamp: time.Now(),
	}
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// SanitizeMessage removes potentially sensitive information from a
// message before it is exposed on the health endpoint: URLs, file paths,
// IP addresses, port numbers and anything that looks like a credential.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := msg
	sanitized = httpURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")
	sanitized = credentialRegex.ReplaceAllString(sanitized, "$1=[REDACTED]")

	return sanitized
}
