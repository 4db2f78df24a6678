package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tradescope/internal/config"
)

func testMonitorCfg() config.MonitorConfig {
	return config.MonitorConfig{
		StageStaleHours:  48,
		MaxFailRate:      0.2,
		MaxDuplicateOrgs: 100,
		MaxHiddenBacklog: 50_000,
	}
}

func TestEvaluate_Healthy(t *testing.T) {
	recent := time.Now().UTC().Add(-1 * time.Hour)
	snap := &Snapshot{
		Stages: []StageStats{
			{Stage: "ingest", Total: 10, Failed: 1, LastSuccess: &recent},
			{Stage: "mirror", Total: 5, Failed: 0, LastSuccess: &recent},
		},
		DuplicateOrgs: 12,
		HiddenBacklog: 300,
	}

	alerts := NewAlerter(testMonitorCfg()).Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestEvaluate_StaleStage(t *testing.T) {
	old := time.Now().UTC().Add(-72 * time.Hour)
	snap := &Snapshot{
		Stages: []StageStats{
			{Stage: "risk", Total: 2, Failed: 0, LastSuccess: &old},
			{Stage: "profiles", Total: 1, Failed: 0, LastSuccess: nil},
		},
	}

	alerts := NewAlerter(testMonitorCfg()).Evaluate(snap)
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, AlertStageStale, a.Type)
	}
}

func TestEvaluate_FailureRate(t *testing.T) {
	recent := time.Now().UTC()
	snap := &Snapshot{
		Stages: []StageStats{
			{Stage: "ingest", Total: 10, Failed: 5, LastSuccess: &recent},
		},
	}

	alerts := NewAlerter(testMonitorCfg()).Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStageFailureRate, alerts[0].Type)
	assert.Equal(t, "critical", alerts[0].Severity)
}

func TestEvaluate_QualityThresholds(t *testing.T) {
	snap := &Snapshot{
		DuplicateOrgs: 250,
		HiddenBacklog: 80_000,
	}

	alerts := NewAlerter(testMonitorCfg()).Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertDuplicateOrgs, alerts[0].Type)
	assert.Equal(t, AlertHiddenBacklog, alerts[1].Type)
}

func TestSendAlerts(t *testing.T) {
	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		received = append(received, a)
	}))
	defer srv.Close()

	cfg := testMonitorCfg()
	cfg.WebhookURL = srv.URL
	alerter := NewAlerter(cfg)

	sent := alerter.SendAlerts(context.Background(), []Alert{
		{Type: AlertStageStale, Severity: "warning", Message: "stage ingest has no recent successful run"},
		{Type: AlertHiddenBacklog, Severity: "warning", Message: "backlog"},
	})
	assert.Equal(t, 2, sent)
	require.Len(t, received, 2)
	assert.Equal(t, AlertStageStale, received[0].Type)
}

func TestSendAlerts_WebhookDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testMonitorCfg()
	cfg.WebhookURL = srv.URL
	sent := NewAlerter(cfg).SendAlerts(context.Background(), []Alert{{Type: AlertStageStale}})
	assert.Equal(t, 0, sent)
}
