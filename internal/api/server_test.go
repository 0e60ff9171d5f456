package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/certificate"
	"github.com/chainchat/chainchat/internal/config"
	"github.com/chainchat/chainchat/internal/host"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/metrics"
	"github.com/chainchat/chainchat/internal/program"
	"github.com/chainchat/chainchat/internal/state"
)

func testAddr(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func newTestServer(t *testing.T) (*Server, *host.Host) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	l := ledger.New(logger)
	prog := program.New(logger, l, certificate.NewLocalIssuer(logger))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	h := host.New(logger, l, prog,
		host.WithClock(func() int64 { return 1_700_000_000 }),
		host.WithMetrics(m),
	)

	cfg := config.APIConfig{Enabled: true, ListenAddr: ":0", AllowOrigins: []string{"*"}}
	s, err := NewServer(logger, cfg, h, nil, registry)
	require.NoError(t, err)
	return s, h
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	_, err := h.Apply(testAddr(0x01), host.Initialize{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[statusView](t, rec)
	assert.Equal(t, uint64(1), status.Sequence)
	assert.Equal(t, 1, status.Records)
}

func TestChannelsEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	owner := testAddr(0x01)
	_, err := h.Apply(owner, host.Initialize{})
	require.NoError(t, err)
	_, err = h.Apply(owner, host.CreateChannel{Name: "general", Description: "the lobby", Cost: state.MinChannelCost})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/channels", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	channels := decode[[]channelView](t, rec)
	require.Len(t, channels, 1)
	assert.Equal(t, "general", channels[0].Name)
	assert.Equal(t, uint64(1), channels[0].MemberCount)
	assert.Equal(t, owner.String(), channels[0].Creator)
}

func TestPollsEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	owner := testAddr(0x01)
	_, err := h.Apply(owner, host.Initialize{})
	require.NoError(t, err)
	applied, err := h.Apply(owner, host.CreateChannel{Name: "general", Cost: state.MinChannelCost})
	require.NoError(t, err)
	channelID := applied.Result.(uint64)

	_, err = h.Apply(owner, host.CreatePoll{
		ChannelID: channelID,
		Params: program.PollParams{
			Kind:     state.PollGeneralQuestion,
			Question: "Pizza night?",
			Options:  []string{"Friday", "Saturday"},
			Duration: 3600,
		},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/channels/1/polls", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	polls := decode[[]pollView](t, rec)
	require.Len(t, polls, 1)
	assert.Equal(t, "Pizza night?", polls[0].Question)
	assert.Equal(t, "general_question", polls[0].Type)
	assert.Equal(t, "none", polls[0].Outcome)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/channels/7/polls", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]pollView](t, rec))
}

func TestEventsEndpointDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	_, err := h.Apply(testAddr(0x01), host.Initialize{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chainchat_instructions_applied_total")
}

func TestRateLimit(t *testing.T) {
	logger := zaptest.NewLogger(t)
	l := ledger.New(logger)
	prog := program.New(logger, l, certificate.NewLocalIssuer(logger))
	h := host.New(logger, l, prog)
	cfg := config.APIConfig{Enabled: true, ListenAddr: ":0", RateLimit: 1, RateBurst: 1}
	s, err := NewServer(logger, cfg, h, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDisabledServer(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := NewServer(logger, config.APIConfig{Enabled: false}, nil, nil, nil)
	assert.Error(t, err)
}
