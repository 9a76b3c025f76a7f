package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthy(t *testing.T) {
	s := Healthy("combiner")
	assert.True(t, s.Healthy)
	assert.True(t, s.IsHealthy())
	assert.Equal(t, StatusHealthy, s.Status)
	assert.Equal(t, "combiner", s.Component)
}

func TestUnhealthy_SanitizesMessage(t *testing.T) {
	s := Unhealthy("combiner", "spill dir /var/tmp/namestream unavailable")
	assert.False(t, s.Healthy)
	assert.NotContains(t, s.Message, "/var/tmp")
	assert.Contains(t, s.Message, "[PATH]")
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		excluded string
	}{
		{"url", "failed to reach http://internal:8080/admin", "http://"},
		{"path", "open /etc/namestream/config.json failed", "/etc/"},
		{"ip", "peer 192.168.1.100 refused", "192.168.1.100"},
		{"port", "listen on :9090 failed", ":9090"},
		{"credential", "auth token=supersecret rejected", "supersecret"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := SanitizeMessage(test.in)
			assert.NotContains(t, out, test.excluded)
		})
	}

	assert.Equal(t, "", SanitizeMessage(""))
}

func TestStatus_WithMetrics(t *testing.T) {
	m := &Metrics{Uptime: time.Minute, RequestsProcessed: 42}
	s := Healthy("combiner").WithMetrics(m)
	assert.Equal(t, m, s.Metrics)
}
