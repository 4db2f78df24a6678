package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStageStale       AlertType = "stage_stale"
	AlertStageFailureRate AlertType = "stage_failure_rate"
	AlertDuplicateOrgs    AlertType = "duplicate_orgs"
	AlertHiddenBacklog    AlertType = "hidden_backlog"
)

// Alert is one threshold breach to be delivered.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against thresholds and delivers breaches to
// a webhook.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
}

func NewAlerter(cfg config.MonitorConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	now := time.Now().UTC()
	var alerts []Alert

	staleCutoff := time.Duration(a.cfg.StageStaleHours) * time.Hour
	for _, s := range snap.Stages {
		if a.cfg.StageStaleHours > 0 {
			if s.LastSuccess == nil || now.Sub(*s.LastSuccess) > staleCutoff {
				alerts = append(alerts, Alert{
					Type:     AlertStageStale,
					Severity: "warning",
					Message:  fmt.Sprintf("stage %s has no recent successful run", s.Stage),
					Details: map[string]any{
						"stage":        s.Stage,
						"last_success": s.LastSuccess,
						"stale_hours":  a.cfg.StageStaleHours,
					},
					Timestamp: now,
				})
			}
		}
		if a.cfg.MaxFailRate > 0 && s.Total > 0 {
			rate := float64(s.Failed) / float64(s.Total)
			if rate > a.cfg.MaxFailRate {
				alerts = append(alerts, Alert{
					Type:     AlertStageFailureRate,
					Severity: "critical",
					Message:  fmt.Sprintf("stage %s failure rate %.0f%% over threshold", s.Stage, rate*100),
					Details: map[string]any{
						"stage":  s.Stage,
						"failed": s.Failed,
						"total":  s.Total,
					},
					Timestamp: now,
				})
			}
		}
	}

	if a.cfg.MaxDuplicateOrgs > 0 && snap.DuplicateOrgs > a.cfg.MaxDuplicateOrgs {
		alerts = append(alerts, Alert{
			Type:      AlertDuplicateOrgs,
			Severity:  "warning",
			Message:   fmt.Sprintf("%d duplicated organization names need reconciliation", snap.DuplicateOrgs),
			Details:   map[string]any{"duplicates": snap.DuplicateOrgs},
			Timestamp: now,
		})
	}

	if a.cfg.MaxHiddenBacklog > 0 && snap.HiddenBacklog > a.cfg.MaxHiddenBacklog {
		alerts = append(alerts, Alert{
			Type:      AlertHiddenBacklog,
			Severity:  "warning",
			Message:   fmt.Sprintf("%d hidden-buyer exports awaiting a mirror match", snap.HiddenBacklog),
			Details:   map[string]any{"backlog": snap.HiddenBacklog},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the webhook, returning how many went out.
// Delivery failures are logged, not returned; one unreachable webhook must
// not fail the check loop.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	log := zap.L().With(zap.String("component", "monitoring.alerter"))
	sent := 0
	for _, alert := range alerts {
		if err := a.send(ctx, alert); err != nil {
			log.Error("alert delivery failed",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

func (a *Alerter) send(ctx context.Context, alert Alert) error {
	if a.cfg.WebhookURL == "" {
		return eris.New("monitoring: no webhook configured")
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return eris.Errorf("monitoring: webhook returned %d", resp.StatusCode)
	}
	return nil
}
