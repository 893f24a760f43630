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

	"github.com/sells-group/studio-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertFallbackRate   AlertType = "fallback_rate"
	AlertCostOverrun    AlertType = "cost_overrun"
	AlertReviewBacklog  AlertType = "review_backlog"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Run failure rate. Requires a minimum sample so a single bad run on a
	// quiet day does not page anyone.
	finished := snap.RunsComplete + snap.RunsFailed
	if finished >= 5 && snap.RunFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.RunFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.RunFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// Fallback rate. High per-run fallback counts mean the agents are
	// producing deterministic boilerplate instead of real plans.
	if a.cfg.FallbackRateThreshold > 0 && snap.RunsTotal >= 3 &&
		snap.FallbacksPerRun > a.cfg.FallbackRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFallbackRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Fallback rate %.1f per run exceeds threshold %.1f (%d events / %d runs in last %dh)",
				snap.FallbacksPerRun, a.cfg.FallbackRateThreshold,
				snap.FallbacksTotal, snap.RunsTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"fallbacks_per_run": snap.FallbacksPerRun,
				"threshold":         a.cfg.FallbackRateThreshold,
				"by_severity":       snap.FallbacksBySeverity,
			},
			Timestamp: now,
		})
	}

	// Cost overrun.
	if a.cfg.CostLimitUSD > 0 && snap.TotalCostUSD > a.cfg.CostLimitUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"API cost $%.2f exceeds limit $%.2f in last %dh",
				snap.TotalCostUSD, a.cfg.CostLimitUSD, snap.LookbackHours,
			),
			Details: map[string]any{
				"cost_usd":   snap.TotalCostUSD,
				"limit_usd":  a.cfg.CostLimitUSD,
				"runs_total": snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	// Review backlog. Pending drafts pile up when nobody is reviewing.
	if a.cfg.ReviewBacklogLimit > 0 && snap.DraftsPending > a.cfg.ReviewBacklogLimit {
		alerts = append(alerts, Alert{
			Type:     AlertReviewBacklog,
			Severity: "low",
			Message: fmt.Sprintf(
				"%d outreach drafts pending review (limit %d)",
				snap.DraftsPending, a.cfg.ReviewBacklogLimit,
			),
			Details: map[string]any{
				"pending": snap.DraftsPending,
				"limit":   a.cfg.ReviewBacklogLimit,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
