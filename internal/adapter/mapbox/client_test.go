package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BROADWAY and MCGRATH HWY, Somerville, Massachusetts.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, testToken, q.Get("access_token"))
		assert.Equal(t, "us", q.Get("country"))
		assert.Equal(t, defaultProximity, q.Get("proximity"))
		assert.Equal(t, defaultBBox, q.Get("bbox"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-71.0781, 42.3858},
					PlaceName: "Broadway & McGrath Highway, Somerville, Massachusetts 02143, United States",
					Text:      "Broadway",
					Relevance: 0.92,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	result, err := c.ForwardGeocode(context.Background(), "BROADWAY / MCGRATH HWY")
	require.NoError(t, err)

	assert.Equal(t, 42.3858, result.Lat)
	assert.Equal(t, -71.0781, result.Lon)
	assert.Contains(t, result.FormattedAddress, "Somerville")
	assert.Equal(t, "Broadway", result.PlaceName)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("success")))
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	result, err := c.ForwardGeocode(context.Background(), "NONEXISTENT ST")
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.Lat)
	assert.Empty(t, result.FormattedAddress)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("empty")))
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "ELM ST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("error")))
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.ForwardGeocode(context.Background(), "ELM ST")
	require.Error(t, err)
}

func TestNormalizeIntersection(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"BROADWAY / MCGRATH HWY", "BROADWAY and MCGRATH HWY"},
		{"HIGHLAND AVE", "HIGHLAND AVE"},
		{"ELM ST/DAVIS SQ", "ELM ST and DAVIS SQ"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeIntersection(tt.in), tt.in)
	}
}
