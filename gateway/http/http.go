// Package http provides the HTTP gateway for the namestream combiner.
package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/namestream/config"
	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/health"
	"github.com/c360/namestream/ingest"
	"github.com/c360/namestream/merge"
	"github.com/c360/namestream/metric"
)

// CombinePath is the combine-names route
const CombinePath = "/v1/combine-names"

// Combiner is the service the gateway fronts
type Combiner interface {
	Process(ctx context.Context, body io.Reader) (*merge.Result, error)
	Health() health.Status
}

// response is the success envelope. Unpaired entries carry an explicit
// side marker in one flat list; both fields are always present, possibly
// empty, never null.
type response struct {
	FullNames []string        `json:"full_names"`
	Unpaired  []unpairedEntry `json:"unpaired"`
}

type unpairedEntry struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
	Side string `json:"side"`
}

// getOrGenerateRequestID extracts the request ID from headers or
// generates a new one so a request can be traced through the logs
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// Gateway exposes the combiner over HTTP
type Gateway struct {
	name     string
	cfg      config.GatewayConfig
	combiner Combiner
	metrics  *metric.Metrics // nil disables instrumentation
	logger   *slog.Logger
	limiter  *rate.Limiter // nil when rate limiting is disabled

	// Lifecycle state (atomic operations)
	running atomic.Bool

	// Protects startTime and lastActivity for concurrent reads
	mu        sync.RWMutex
	startTime time.Time

	// Metrics (atomic operations)
	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
	bytesReceived   atomic.Uint64
	bytesSent       atomic.Uint64
	lastActivity    time.Time
}

// NewGateway creates an HTTP gateway for the given combiner
func NewGateway(cfg config.GatewayConfig, combiner Combiner, registry *metric.MetricsRegistry, logger *slog.Logger) (*Gateway, error) {
	if combiner == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"combiner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	var metrics *metric.Metrics
	if registry != nil {
		metrics = registry.CoreMetrics()
	}

	return &Gateway{
		name:     "http-gateway",
		cfg:      cfg,
		combiner: combiner,
		metrics:  metrics,
		logger:   logger,
		limiter:  limiter,
	}, nil
}

// Start marks the gateway running
func (g *Gateway) Start(_ context.Context) error {
	if g.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Gateway", "Start",
			"gateway already running")
	}

	g.mu.Lock()
	g.running.Store(true)
	g.startTime = time.Now()
	g.mu.Unlock()

	return nil
}

// Stop marks the gateway stopped; in-flight requests are cut off by the
// HTTP server's shutdown, not here
func (g *Gateway) Stop(_ time.Duration) error {
	if !g.running.Load() {
		return nil
	}

	g.mu.Lock()
	g.running.Store(false)
	g.mu.Unlock()

	return nil
}

// RegisterHTTPHandlers registers gateway routes with the HTTP mux
func (g *Gateway) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc(CombinePath, g.handleCombine)
	mux.HandleFunc("/healthz", g.handleHealth)
}

// handleCombine serves POST /v1/combine-names. The body streams straight
// through the ingestion pipeline; the only buffering between the wire and
// the merge output is the combiner's own bounded accumulation.
func (g *Gateway) handleCombine(w http.ResponseWriter, r *http.Request) {
	requestID := getOrGenerateRequestID(r)
	w.Header().Set("X-Request-ID", requestID)
	logger := g.logger.With("request_id", requestID)

	g.requestsTotal.Add(1)
	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()

	if g.cfg.EnableCORS {
		g.applyCORS(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	if r.Method != http.MethodPost {
		g.writeError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", r.Method))
		g.fail("method_not_allowed")
		return
	}

	if g.limiter != nil && !g.limiter.Allow() {
		g.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		g.fail("rate_limited")
		return
	}

	defer r.Body.Close()

	if g.metrics != nil {
		g.metrics.InFlight.Inc()
		defer g.metrics.InFlight.Dec()
	}

	// Enforce the size cap while streaming; exceeding it aborts the
	// decode mid-flight instead of buffering the body to measure it.
	body := &countingReader{r: http.MaxBytesReader(w, r.Body, g.cfg.MaxRequestSize)}

	result, err := g.combiner.Process(r.Context(), body)
	g.bytesReceived.Add(body.n.Load())
	if g.metrics != nil {
		g.metrics.BytesReceived.Add(float64(body.n.Load()))
	}

	if err != nil {
		statusCode := g.mapErrorToHTTPStatus(err)
		logger.Error("Request failed",
			"status", statusCode,
			"error", err)
		g.writeError(w, statusCode, g.sanitizeError(err, statusCode))
		g.fail(statusLabel(statusCode))
		return
	}

	sent, err := g.writeResult(w, result)
	if err != nil {
		// Response already partially written; nothing recoverable
		logger.Error("Failed to write response", "error", err)
		g.fail("write_failed")
		return
	}

	g.bytesSent.Add(uint64(sent))
	if g.metrics != nil {
		g.metrics.BytesSent.Add(float64(sent))
		g.metrics.RecordRequest("ok")
	}
	g.requestsSuccess.Add(1)

	logger.Debug("Request served",
		"full_names", len(result.Pairs),
		"unpaired", len(result.Unpaired),
		"bytes_sent", sent)
}

// writeResult renders the success envelope
func (g *Gateway) writeResult(w http.ResponseWriter, result *merge.Result) (int, error) {
	resp := response{
		FullNames: result.FullNames(),
		Unpaired:  make([]unpairedEntry, len(result.Unpaired)),
	}
	for i, u := range result.Unpaired {
		resp.Unpaired[i] = unpairedEntry{Name: u.Name, ID: u.ID, Side: u.Side.String()}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return w.Write(data)
}

// handleHealth serves GET /healthz
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.writeError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", r.Method))
		return
	}

	status := g.combiner.Health()
	if !g.running.Load() {
		status = health.Unhealthy(g.name, "gateway not started")
	}

	code := http.StatusOK
	if !status.IsHealthy() {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// applyCORS applies CORS headers to the response
func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	allowed := false
	for _, allowedOrigin := range g.cfg.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}

	if allowed {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")
	}
}

// mapErrorToHTTPStatus maps pipeline errors to HTTP status codes
func (g *Gateway) mapErrorToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) || stderrors.Is(err, errors.ErrRequestTooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	if errors.IsInvalid(err) {
		return http.StatusBadRequest
	}
	if errors.IsTransient(err) {
		if strings.Contains(err.Error(), "timeout") {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// sanitizeError returns a safe client-facing message. Malformed-payload
// details point at the client's own data and are safe to return; internal
// fault detail stays in the logs.
func (g *Gateway) sanitizeError(err error, statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		var mpe *ingest.MalformedPayloadError
		if stderrors.As(err, &mpe) {
			return mpe.Error()
		}
		return "invalid request"
	case http.StatusRequestEntityTooLarge:
		return fmt.Sprintf("request body exceeds maximum size of %d bytes", g.cfg.MaxRequestSize)
	case http.StatusGatewayTimeout:
		return "request timeout"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

// writeError writes an error response in the standard envelope
func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]any{
		"error":  message,
		"status": statusCode,
	}

	data, _ := json.Marshal(resp)
	_, _ = w.Write(data)
}

// fail records one failed request
func (g *Gateway) fail(reason string) {
	g.requestsFailed.Add(1)
	if g.metrics != nil {
		g.metrics.RecordRequest(reason)
	}
}

// statusLabel maps a status code to a stable metrics label
func statusLabel(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "transient"
	default:
		return "error"
	}
}

// countingReader counts bytes handed to the decoder
type countingReader struct {
	r io.Reader
	n atomic.Uint64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n.Add(uint64(n))
	return n, err
}
