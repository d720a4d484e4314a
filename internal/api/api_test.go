package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jim-wyatt/saas-tesa/internal/connectors"
	"github.com/jim-wyatt/saas-tesa/internal/engine"
	"github.com/jim-wyatt/saas-tesa/internal/model"
	"github.com/jim-wyatt/saas-tesa/internal/service"
	"github.com/jim-wyatt/saas-tesa/internal/store"
)

func newServer(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()
	require.NoError(t, st.Init(context.Background()))
	svc := service.New(st, connectors.MockProvider{})
	srv := httptest.NewServer(NewRouter(svc, 5*time.Second))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

func TestHealth(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore())
	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","store":"memory"}`, string(body))
}

func TestIngestSignalsScenario(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore())

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/signals", `{"signals":[{
		"source":"iam","signal_type":"stale_admin_credential","severity":5,
		"detected_at":"2026-01-01T00:00:00Z","metadata":{"privileged_access":true}}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out ingestSignalsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Ingested)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, model.StandardOCSF, out.Findings[0].Standard)
	assert.Equal(t, model.SeverityCritical, out.Findings[0].Severity)
	assert.Equal(t, engine.MaxRiskScore, out.Findings[0].RiskScore)
	assert.Equal(t, true, out.Findings[0].RawData["privileged_access"])

	_, body = do(t, http.MethodGet, srv.URL+"/api/v1/summary", "")
	var summary model.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.GreaterOrEqual(t, summary.Critical, 1)
}

func TestIngestSignalsErrors(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore())

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/signals", `{"signals":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/signals", `{"signals":[{
		"source":"iam","signal_type":"x","severity":0,"detected_at":"2026-01-01T00:00:00Z"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "signals[0]")
}

func TestIngestFindingsAndList(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore())

	older := engine.Normalize(model.ThreatSignal{
		Source: "sast", SignalType: "sql_injection", Severity: 4,
		DetectedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	newer := engine.Normalize(model.ThreatSignal{
		Source: "cspm", SignalType: "public_bucket", Severity: 3,
		DetectedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	payload, err := json.Marshal(ingestFindingsRequest{Findings: []model.SecurityFinding{older, newer}})
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/findings", string(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"ingested":2}`, string(body))

	_, body = do(t, http.MethodGet, srv.URL+"/api/v1/findings?limit=1", "")
	var listed []model.SecurityFinding
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, newer.FindingUID, listed[0].FindingUID)
	assert.Equal(t, newer.References, listed[0].References)
	assert.Equal(t, newer.Resource, listed[0].Resource)

	_, body = do(t, http.MethodGet, srv.URL+"/api/v1/findings", "")
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Len(t, listed, 2)
}

func TestListLimitBounds(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore())
	for _, limit := range []string{"0", "1001", "ten", "-3"} {
		resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/findings?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, limit)
	}
	resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/findings?limit=1000", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCollectRunsProviders(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore())

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/collect", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out collectResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 2, out.Ingested)
	assert.Equal(t, model.Summary{High: 1, Critical: 1}, out.Summary)
}

type downStore struct{ *store.MemoryStore }

func (downStore) Summary(context.Context) (model.Summary, error) {
	return model.Summary{}, errors.New("connection refused")
}

func TestStoreFailureIs500(t *testing.T) {
	srv := newServer(t, downStore{store.NewMemoryStore()})
	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/summary", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "connection refused")
}
