package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/namestream/config"
	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/health"
	"github.com/c360/namestream/merge"
	"github.com/c360/namestream/service"
	"github.com/c360/namestream/spill"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, cfg config.GatewayConfig) *Gateway {
	t.Helper()

	combiner := service.NewCombiner(spill.Config{Dir: t.TempDir()}, nil, testLogger())
	gw, err := NewGateway(cfg, combiner, nil, testLogger())
	require.NoError(t, err)
	require.NoError(t, gw.Start(context.Background()))
	t.Cleanup(func() { _ = gw.Stop(0) })
	return gw
}

func serve(gw *Gateway, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	gw.RegisterHTTPHandlers(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func postCombine(gw *Gateway, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, CombinePath, strings.NewReader(body))
	return serve(gw, req)
}

func TestGateway_CombineExactMatch(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	rec := postCombine(gw, `{
		"first_names": [["John", 2], ["Adam", 1]],
		"last_names":  [["Smith", 1], ["Anderson", 2]]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Adam Smith", "John Anderson"}, resp.FullNames)
	assert.Empty(t, resp.Unpaired)
}

func TestGateway_CombineUnpaired(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	rec := postCombine(gw, `{
		"first_names": [["Alice", 3], ["Bob", 7]],
		"last_names":  [["Jones", 3], ["Stone", 5]]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Alice Jones"}, resp.FullNames)
	require.Len(t, resp.Unpaired, 2)
	assert.Equal(t, unpairedEntry{Name: "Stone", ID: 5, Side: "last"}, resp.Unpaired[0])
	assert.Equal(t, unpairedEntry{Name: "Bob", ID: 7, Side: "first"}, resp.Unpaired[1])
}

func TestGateway_CombineEmptyBodyArrays(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	rec := postCombine(gw, `{"first_names": [], "last_names": []}`)

	require.Equal(t, http.StatusOK, rec.Code)
	// Both fields present and empty, never null
	assert.JSONEq(t, `{"full_names":[],"unpaired":[]}`, rec.Body.String())
}

func TestGateway_CombineMalformed(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	cases := []struct {
		name string
		body string
	}{
		{"truncated", `{"first_names": [["A", 1]`},
		{"non-integer id", `{"first_names": [["A", "one"]], "last_names": []}`},
		{"root not object", `[]`},
		{"empty body", ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCombine(gw, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp["error"])
			assert.Equal(t, float64(http.StatusBadRequest), errResp["status"])
			assert.NotContains(t, errResp, "full_names")
		})
	}
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	req := httptest.NewRequest(http.MethodGet, CombinePath, nil)
	rec := serve(gw, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGateway_BodyTooLarge(t *testing.T) {
	cfg := config.Default().Gateway
	cfg.MaxRequestSize = 64
	gw := newTestGateway(t, cfg)

	big := `{"first_names": [["` + strings.Repeat("A", 128) + `", 1]], "last_names": []}`
	rec := postCombine(gw, big)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var errResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Contains(t, errResp["error"], "maximum size")
}

func TestGateway_RateLimit(t *testing.T) {
	cfg := config.Default().Gateway
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	gw := newTestGateway(t, cfg)

	first := postCombine(gw, `{"first_names": [], "last_names": []}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := postCombine(gw, `{"first_names": [], "last_names": []}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestGateway_CORS(t *testing.T) {
	cfg := config.Default().Gateway
	cfg.EnableCORS = true
	cfg.CORSOrigins = []string{"https://example.com"}
	gw := newTestGateway(t, cfg)

	t.Run("preflight allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, CombinePath, nil)
		req.Header.Set("Origin", "https://example.com")
		rec := serve(gw, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, CombinePath, nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := serve(gw, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestGateway_RequestIDEchoed(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	req := httptest.NewRequest(http.MethodPost, CombinePath,
		strings.NewReader(`{"first_names": [], "last_names": []}`))
	req.Header.Set("X-Request-ID", "req-42")
	rec := serve(gw, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestGateway_RequestIDGenerated(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	rec := postCombine(gw, `{"first_names": [], "last_names": []}`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGateway_Healthz(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := serve(gw, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Healthy)
}

func TestGateway_HealthzNotStarted(t *testing.T) {
	combiner := service.NewCombiner(spill.Config{Dir: t.TempDir()}, nil, testLogger())
	gw, err := NewGateway(config.Default().Gateway, combiner, nil, testLogger())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := serve(gw, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGateway_StartTwice(t *testing.T) {
	gw := newTestGateway(t, config.Default().Gateway)

	err := gw.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

// failingCombiner simulates pipeline faults for status mapping
type failingCombiner struct {
	err error
}

func (f *failingCombiner) Process(context.Context, io.Reader) (*merge.Result, error) {
	return nil, f.err
}

func (f *failingCombiner) Health() health.Status {
	return health.Healthy("failing-combiner")
}

func TestGateway_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "transient maps to 503",
			err:  errors.WrapTransient(errors.ErrSpillFailed, "Combiner", "Process", "spill write failed"),
			want: http.StatusServiceUnavailable,
		},
		{
			name: "transient timeout maps to 504",
			err:  errors.WrapTransient(errors.ErrShuttingDown, "Combiner", "Process", "request timeout exceeded"),
			want: http.StatusGatewayTimeout,
		},
		{
			name: "fatal maps to 500",
			err:  errors.WrapFatal(errors.ErrOrderViolation, "Engine", "Join", "cursor order regressed"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw, err := NewGateway(config.Default().Gateway, &failingCombiner{err: tc.err}, nil, testLogger())
			require.NoError(t, err)
			require.NoError(t, gw.Start(context.Background()))

			rec := postCombine(gw, `{"first_names": [], "last_names": []}`)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
