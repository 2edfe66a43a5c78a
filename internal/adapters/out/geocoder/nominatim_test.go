package geocoder_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/adapters/out/geocoder"
	"tracker/internal/pkg/errs"
)

func newClient(t *testing.T, handler http.HandlerFunc, retries uint64) *geocoder.Nominatim {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := geocoder.NewNominatim(geocoder.Config{
		BaseURL:    server.URL,
		UserAgent:  "tracker-test",
		MaxRetries: retries,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return client
}

func TestNominatim_Geocode(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "1 Main St, Springfield", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "tracker-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"50.0","lon":"10.0","display_name":"Springfield"}]`))
	}, 0)

	loc, err := client.Geocode(t.Context(), "1 Main St, Springfield")

	require.NoError(t, err)
	assert.InDelta(t, 10.0, loc.Longitude(), 0)
	assert.InDelta(t, 50.0, loc.Latitude(), 0)
}

func TestNominatim_NoMatchIsInvalidAddress(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, 0)

	_, err := client.Geocode(t.Context(), "nowhere")

	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestNominatim_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1.5","lon":"2.5"}]`))
	}, 5)

	loc, err := client.Geocode(t.Context(), "somewhere")

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.InDelta(t, 2.5, loc.Longitude(), 0)
}

func TestNominatim_UnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 1)

	_, err := client.Geocode(t.Context(), "somewhere")

	require.ErrorIs(t, err, errs.ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNominatim_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}, 3)

	_, err := client.Geocode(t.Context(), "somewhere")

	require.ErrorIs(t, err, errs.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewNominatim_Validation(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := geocoder.NewNominatim(geocoder.Config{BaseURL: "http://x"}, logger)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = geocoder.NewNominatim(geocoder.Config{BaseURL: "::", UserAgent: "a"}, logger)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}
