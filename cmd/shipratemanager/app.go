package main

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/bher20/shipratemanager/internal/alerting"
	"github.com/bher20/shipratemanager/internal/config"
	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/notification"
	"github.com/bher20/shipratemanager/internal/publish"
	"github.com/bher20/shipratemanager/internal/rates"
	"github.com/bher20/shipratemanager/internal/storage"
)

// app bundles the wired components every command needs.
type app struct {
	cfg     config.Config
	store   storage.Storage
	svc     *rates.Service
	alerter *alerting.Alerter
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.ResolvedDSN()})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	alerter := alerting.NewAlerter(alerting.NewAlertConfig(cfg.Alert.WebhookURL, cfg.Alert.WebhookType))
	notifiers := []rates.Notifier{alerter}

	email := notification.EmailConfig{
		APIKey:   cfg.Notify.SendgridAPIKey,
		From:     cfg.Notify.From,
		FromName: "Shipping Rate Manager",
		To:       cfg.Notify.To,
	}
	if email.Enabled() {
		notifiers = append(notifiers, notification.NewService(email))
	}

	snapshotPath := cfg.Resolve(cfg.SnapshotPath)
	if cfg.S3.Bucket != "" {
		mirror, err := publish.NewSnapshotMirror(ctx, publish.Config{
			Bucket:    cfg.S3.Bucket,
			Key:       cfg.S3.Key,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}, snapshotPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("configure snapshot mirror: %w", err)
		}
		notifiers = append(notifiers, mirror)
	}

	svc := rates.NewService(rates.Config{
		DocumentURL:  cfg.DocumentURL,
		DocumentPath: cfg.Resolve(cfg.DocumentPath),
		SnapshotPath: snapshotPath,
		RowLimit:     cfg.RowLimit,
		Location:     loc,
	}, rates.NewHTTPClient(cfg.HTTPTimeout), st, notifiers...)

	logger.Info().
		Str("base_dir", cfg.BaseDir).
		Str("driver", cfg.DBDriver).
		Int("notifiers", len(notifiers)).
		Msg("application configured")

	return &app{cfg: cfg, store: st, svc: svc, alerter: alerter}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
