package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
	"store_name": "Foo Mart",
	"date": "2024-03-01",
	"total": 23.50,
	"items": [{"name": "Milk", "price": 4.50, "quantity": 1}],
	"validation": {"is_valid": true, "confidence_score": 0.9, "issues": []},
	"processing_time": 1.2
}`

type fakeService struct {
	mu sync.Mutex

	healthStatus int
	aiAvailable  bool
	aiEndpoint   bool
	parseStatus  int
	parseBody    string

	// when set, the first parse call (the enhanced attempt) fails
	enhancedFails bool

	parseCalls    int
	enhancedCalls int
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.healthStatus)
	})
	mux.HandleFunc("/ai-health", func(w http.ResponseWriter, r *http.Request) {
		if !f.aiEndpoint {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if f.aiAvailable {
			w.Write([]byte(`{"ai_available": true, "status": "ok"}`))
			return
		}
		w.Write([]byte(`{"ai_available": false, "status": "degraded"}`))
	})
	mux.HandleFunc("/parse", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.parseCalls++
		enhanced := false
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			enhanced = r.FormValue("enhanced") == "true"
		}
		if enhanced {
			f.enhancedCalls++
		}
		failEnhanced := f.enhancedFails && enhanced
		f.mu.Unlock()

		if failEnhanced {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if f.parseStatus != http.StatusOK {
			w.WriteHeader(f.parseStatus)
			w.Write([]byte("extraction blew up"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(f.parseBody))
	})
	return mux
}

func (f *fakeService) calls() (parse, enhanced int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parseCalls, f.enhancedCalls
}

func newTestClient(baseURL string) *client {
	return &client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 2 * time.Second},
		healthTimeout: 500 * time.Millisecond,
	}
}

func TestParseReturnsPayloadWhenHealthy(t *testing.T) {
	svc := &fakeService{healthStatus: http.StatusOK, parseStatus: http.StatusOK, parseBody: validPayload}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.IsValid)
	assert.Equal(t, "Foo Mart", result.StoreName)
	assert.Equal(t, 23.50, result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Milk", result.Items[0].Name)
	assert.False(t, result.Enhanced)
}

func TestParseSkipsEndpointWhenProbeFails(t *testing.T) {
	svc := &fakeService{healthStatus: http.StatusServiceUnavailable, parseStatus: http.StatusOK, parseBody: validPayload}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.IsValid)
	require.NotEmpty(t, result.Validation.Issues)
	assert.Contains(t, result.Validation.Issues[0], "service unavailable")

	parseCalls, _ := svc.calls()
	assert.Zero(t, parseCalls, "parse endpoint must not be called when the probe fails")
}

func TestParseFallsBackOnErrorStatus(t *testing.T) {
	svc := &fakeService{healthStatus: http.StatusOK, parseStatus: http.StatusInternalServerError}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.IsValid)
	require.NotEmpty(t, result.Validation.Issues)
	assert.Contains(t, result.Validation.Issues[0], "500")
}

func TestParseFallsBackOnMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing validation", `{"store_name": "Foo Mart", "total": 1, "items": []}`},
		{"negative price", `{"items": [{"name": "Milk", "price": -4.50}], "validation": {"is_valid": true, "confidence_score": 0.9, "issues": []}}`},
		{"not json", `<html>gateway timeout</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{healthStatus: http.StatusOK, parseStatus: http.StatusOK, parseBody: tt.body}
			server := httptest.NewServer(svc.handler())
			defer server.Close()

			result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

			require.NotNil(t, result.Validation)
			assert.False(t, result.Validation.IsValid)
			require.NotEmpty(t, result.Validation.Issues)
			assert.Equal(t, "malformed response", result.Validation.Issues[0])
		})
	}
}

func TestParsePassesThroughSemanticRejection(t *testing.T) {
	// A structurally valid "not a receipt" verdict must reach the caller
	// as-is, not be replaced by a fallback.
	body := `{"items": [], "validation": {"is_valid": false, "confidence_score": 0.2, "issues": ["not a receipt"]}}`
	svc := &fakeService{healthStatus: http.StatusOK, parseStatus: http.StatusOK, parseBody: body}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.IsValid)
	assert.Equal(t, []string{"not a receipt"}, result.Validation.Issues)
	assert.Equal(t, 0.2, result.Validation.ConfidenceScore)
}

func TestParsePrefersEnhancedWhenAvailable(t *testing.T) {
	svc := &fakeService{healthStatus: http.StatusOK, aiEndpoint: true, aiAvailable: true, parseStatus: http.StatusOK, parseBody: validPayload}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.IsValid)
	assert.True(t, result.Enhanced)

	parseCalls, enhancedCalls := svc.calls()
	assert.Equal(t, 1, parseCalls)
	assert.Equal(t, 1, enhancedCalls)
}

func TestParseFallsThroughWhenEnhancedFails(t *testing.T) {
	svc := &fakeService{
		healthStatus:  http.StatusOK,
		aiEndpoint:    true,
		aiAvailable:   true,
		enhancedFails: true,
		parseStatus:   http.StatusOK,
		parseBody:     validPayload,
	}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	result := newTestClient(server.URL).Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.IsValid)
	assert.False(t, result.Enhanced)

	parseCalls, enhancedCalls := svc.calls()
	assert.Equal(t, 2, parseCalls, "one enhanced attempt, one standard, no retries")
	assert.Equal(t, 1, enhancedCalls)
}

func TestParseNeverReturnsNilOnUnreachableService(t *testing.T) {
	result := newTestClient("http://127.0.0.1:1").Parse(context.Background(), []byte("img"), "receipt.jpg", "image/jpeg")

	require.NotNil(t, result)
	require.NotNil(t, result.Validation)
	require.NotNil(t, result.Items)
	assert.False(t, result.Validation.IsValid)
}
