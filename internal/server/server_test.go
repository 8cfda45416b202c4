package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/eskrenkovic/correlation-go/internal/config"
	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const knownID = "8f14e45f-ceea-4670-8b2d-0d3aca1c9dd7"

func testConfig() config.Config {
	return config.Config{
		ShutdownTimeout: time.Second,
		Correlation:     correlation.DefaultConfig(),
		MetricsEnabled:  true,
	}
}

func newTestServer(t *testing.T, conf config.Config) *httptest.Server {
	t.Helper()

	srv, err := NewHTTPServer(conf)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts
}

func get(t *testing.T, target string, header http.Header) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func Test_Get_Correlation_ID_Returns_Inbound_ID(t *testing.T) {
	// Arrange
	ts := newTestServer(t, testConfig())

	// Act
	resp, body := get(t, ts.URL+"/correlation-id", http.Header{"X-Correlation-Id": {knownID}})

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, knownID, body)
	require.Empty(t, resp.Header.Get("x-correlation-id"))
}

func Test_Get_Correlation_ID_Generates_And_Echoes_ID(t *testing.T) {
	// Arrange
	conf := testConfig()
	conf.Correlation.IncludeInResponse = true
	ts := newTestServer(t, conf)

	// Act
	resp, body := get(t, ts.URL+"/correlation-id", nil)

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := correlation.Parse(body)
	require.NoError(t, err)
	require.Equal(t, body, resp.Header.Get("x-correlation-id"))
}

func Test_Enforced_Header_Rejects_Request(t *testing.T) {
	// Arrange
	conf := testConfig()
	conf.Correlation.EnforceHeader = true
	ts := newTestServer(t, conf)

	// Act
	resp, body := get(t, ts.URL+"/correlation-id", nil)

	// Assert
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "header 'x-correlation-id' is required")
}

func Test_Simple_Forwards_Correlation_ID_Upstream(t *testing.T) {
	// Arrange
	received := make(chan string, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("x-correlation-id")
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(body)
	}))
	t.Cleanup(upstream.Close)

	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	conf := testConfig()
	conf.UpstreamURL = upstreamURL
	ts := newTestServer(t, conf)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/simple", strings.NewReader("ping"))
	require.NoError(t, err)
	req.Header.Set("x-correlation-id", knownID)

	// Act
	resp, body := do(t, req)

	// Assert
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "ping", body)
	require.Equal(t, knownID, <-received)
}

func Test_Simple_Without_Upstream_Returns_Service_Unavailable(t *testing.T) {
	// Arrange
	ts := newTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/simple", strings.NewReader("ping"))
	require.NoError(t, err)

	// Act
	resp, _ := do(t, req)

	// Assert
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func Test_Simple_Unreachable_Upstream_Returns_Bad_Gateway(t *testing.T) {
	// Arrange
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	upstream.Close()

	conf := testConfig()
	conf.UpstreamURL = upstreamURL
	ts := newTestServer(t, conf)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/simple", strings.NewReader("ping"))
	require.NoError(t, err)

	// Act
	resp, body := do(t, req)

	// Assert
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Contains(t, body, "upstream request failed")
}

func Test_Metrics_Counts_Resolutions(t *testing.T) {
	// Arrange
	ts := newTestServer(t, testConfig())
	get(t, ts.URL+"/correlation-id", http.Header{"X-Correlation-Id": {knownID}})

	// Act
	resp, body := get(t, ts.URL+"/metrics", nil)

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `correlation_id_resolutions_total{outcome="adopted"} 1`)
}

func Test_Metrics_Scrape_Bypasses_Enforced_Header(t *testing.T) {
	// Arrange
	conf := testConfig()
	conf.Correlation.EnforceHeader = true
	ts := newTestServer(t, conf)

	// Act
	resp, body := get(t, ts.URL+"/metrics", nil)

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `correlation_id_resolutions_total{outcome="rejected"} 0`)
}

func Test_Metrics_Scrape_Is_Not_Counted(t *testing.T) {
	// Arrange
	ts := newTestServer(t, testConfig())
	get(t, ts.URL+"/metrics", nil)

	// Act
	_, body := get(t, ts.URL+"/metrics", nil)

	// Assert
	require.Contains(t, body, `correlation_id_resolutions_total{outcome="generated"} 0`)
}

func Test_Simple_Pipeline_Logs_Carry_Correlation_ID(t *testing.T) {
	// Arrange
	observed, logs := observer.New(zap.InfoLevel)
	conf := testConfig()
	conf.Logger = zap.New(observed)
	ts := newTestServer(t, conf)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/simple", strings.NewReader("ping"))
	require.NoError(t, err)
	req.Header.Set("x-correlation-id", knownID)

	// Act
	resp, _ := do(t, req)

	// Assert
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	processing := logs.FilterMessage("processing request").All()
	require.Len(t, processing, 1)
	require.Equal(t, knownID, processing[0].ContextMap()["correlation_id"])

	failed := logs.FilterMessage("handler returned error").All()
	require.Len(t, failed, 1)
	require.Equal(t, knownID, failed[0].ContextMap()["correlation_id"])
}

func Test_Metrics_Route_Absent_When_Disabled(t *testing.T) {
	// Arrange
	conf := testConfig()
	conf.MetricsEnabled = false
	ts := newTestServer(t, conf)

	// Act
	resp, _ := get(t, ts.URL+"/metrics", nil)

	// Assert
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_Access_Log_Starts_With_Correlation_ID(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.InfoLevel)
	conf := testConfig()
	conf.Logger = zap.New(core)
	ts := newTestServer(t, conf)

	// Act
	get(t, ts.URL+"/correlation-id", http.Header{"X-Correlation-Id": {knownID}})

	// Assert
	entries := logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "access" }).All()
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Message, knownID+" "), entries[0].Message)
}

func Test_New_Server_Rejects_Invalid_Access_Log_Format(t *testing.T) {
	// Arrange
	conf := testConfig()
	conf.AccessLogFormat = "%q"

	// Act
	_, err := NewHTTPServer(conf)

	// Assert
	require.Error(t, err)
}

func Test_Start_Returns_After_Stop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// Arrange
	srv, err := NewHTTPServer(testConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Act
	require.NoError(t, srv.Stop(context.Background()))

	// Assert
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
