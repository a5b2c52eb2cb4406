package alerting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/rates"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	Enabled     bool
	Timeout     time.Duration
}

// NewAlertConfig fills in the webhook type from the URL when it is not set.
func NewAlertConfig(url, typ string) AlertConfig {
	cfg := AlertConfig{
		WebhookURL:  url,
		WebhookType: typ,
		Enabled:     url != "",
		Timeout:     10 * time.Second,
	}
	if cfg.WebhookType == "" {
		switch {
		case strings.Contains(url, "slack.com"):
			cfg.WebhookType = "slack"
		case strings.Contains(url, "discord.com"):
			cfg.WebhookType = "discord"
		default:
			cfg.WebhookType = "generic"
		}
	}
	return cfg
}

// Alerter posts refresh and failure alerts to a webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
}

func NewAlerter(cfg AlertConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Alert is the payload-independent description of one event.
type Alert struct {
	Kind      string // "refresh" or "failure"
	JobName   string
	Title     string
	Summary   string
	Fields    []Field
	Timestamp time.Time
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NotifyRefresh announces a refreshed rate table.
func (a *Alerter) NotifyRefresh(ctx context.Context, res *rates.Result) error {
	alert := Alert{
		Kind:      "refresh",
		JobName:   "shipping-costs",
		Title:     "Shipping costs updated",
		Summary:   fmt.Sprintf("%d rows stored, document last changed %s", res.Rows, res.LastChanged),
		Timestamp: time.Now(),
		Fields: []Field{
			{Name: "Rows", Value: fmt.Sprintf("%d", res.Rows)},
			{Name: "Last changed", Value: res.LastChanged},
			{Name: "Run", Value: res.RunID},
		},
	}
	if len(res.Table) > 0 {
		first := res.Table[0]
		for i, c := range shipping.Carriers() {
			if i >= 3 {
				break
			}
			alert.Fields = append(alert.Fields, Field{
				Name:  c.Name + " (desi 0)",
				Value: fmt.Sprintf("%.2f", first.Costs[i]),
			})
		}
	}
	return a.Send(ctx, alert)
}

// SendFailureAlert reports a failed scheduled run.
func (a *Alerter) SendFailureAlert(ctx context.Context, job string, runErr error, dur time.Duration) error {
	return a.Send(ctx, Alert{
		Kind:      "failure",
		JobName:   job,
		Title:     "Shipping cost refresh failed",
		Summary:   runErr.Error(),
		Timestamp: time.Now(),
		Fields: []Field{
			{Name: "Job", Value: job},
			{Name: "Duration", Value: dur.Round(time.Millisecond).String()},
		},
	})
}

// Send delivers alert in the configured payload format.
func (a *Alerter) Send(ctx context.Context, alert Alert) error {
	log := logger.Component("alerting")
	if !a.cfg.Enabled {
		log.Debug().Str("kind", alert.Kind).Msg("alerts disabled, skipping")
		return nil
	}

	var (
		payload []byte
		err     error
	)
	switch a.cfg.WebhookType {
	case "slack":
		payload, err = buildSlackPayload(alert)
	case "discord":
		payload, err = buildDiscordPayload(alert)
	default:
		payload, err = buildGenericPayload(alert)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Info().Str("kind", alert.Kind).Str("job", alert.JobName).Msg("alert sent")
	return nil
}

func buildSlackPayload(alert Alert) ([]byte, error) {
	emoji := ":package:"
	if alert.Kind == "failure" {
		emoji = ":x:"
	}

	fields := make([]map[string]string, 0, len(alert.Fields))
	for _, f := range alert.Fields {
		fields = append(fields, map[string]string{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:*\n%s", f.Name, f.Value),
		})
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s %s", emoji, alert.Title),
				},
			},
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": alert.Summary},
			},
			{
				"type":   "section",
				"fields": fields,
			},
		},
	}
	return json.Marshal(payload)
}

func buildDiscordPayload(alert Alert) ([]byte, error) {
	color := 3066993 // green
	if alert.Kind == "failure" {
		color = 16711680 // red
	}

	fields := make([]map[string]interface{}, 0, len(alert.Fields))
	for _, f := range alert.Fields {
		fields = append(fields, map[string]interface{}{"name": f.Name, "value": f.Value, "inline": true})
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       alert.Title,
				"description": alert.Summary,
				"color":       color,
				"fields":      fields,
				"timestamp":   alert.Timestamp.Format(time.RFC3339),
			},
		},
	}
	return json.Marshal(payload)
}

func buildGenericPayload(alert Alert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type": alert.Kind,
		"job_name":   alert.JobName,
		"title":      alert.Title,
		"summary":    alert.Summary,
		"fields":     alert.Fields,
		"timestamp":  alert.Timestamp.Format(time.RFC3339),
	}
	return json.Marshal(payload)
}
