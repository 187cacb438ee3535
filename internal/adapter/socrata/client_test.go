package socrata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url, token string) *Client {
	return NewClient(url, token, 5*time.Second, discardLogger())
}

func TestExtract_Success(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"crashnum":"4567123","weathcond1desc":"Clear","fatalinjury":"0"},
			{"crashnum":"4567124","weathcond1desc":"Rain"}
		]`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL, "app-token").Extract(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.V("4567123"), records[0].CrashNum)
	assert.Equal(t, domain.V("Rain"), records[1].Weather)
	assert.Equal(t, "app-token", gotToken)
}

func TestExtract_NoTokenHeaderWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-App-Token"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL, "").Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtract_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").Extract(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Contains(t, err.Error(), "503")
}

func TestExtract_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":true}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode raw incidents")
}

func TestExtract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 20*time.Millisecond, discardLogger())
	_, err := c.Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch source")
}
