package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/shipratemanager/internal/api"
	"github.com/bher20/shipratemanager/internal/config"
	"github.com/bher20/shipratemanager/internal/cron"
	"github.com/bher20/shipratemanager/internal/export"
	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/snapshot"
)

func newRootCmd() *cobra.Command {
	var baseDir string

	load := func() config.Config {
		cfg := config.FromEnv()
		if baseDir != "" {
			cfg.BaseDir = baseDir
		}
		logger.Init(cfg.Env, cfg.LogLevel)
		return cfg
	}

	root := &cobra.Command{
		Use:           "shipratemanager",
		Short:         "Keep the shipping cost table in sync with the published rate document",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.svc.Refresh(cmd.Context())
			return err
		},
	}
	root.PersistentFlags().StringVar(&baseDir, "base-dir", "", "directory relative paths resolve against (overrides SHIPRATE_BASE_DIR)")

	root.AddCommand(newServeCmd(load), newWorkerCmd(load), newExportCmd(load))
	return root
}

func newServeCmd(load func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored shipping costs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := load()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           api.NewServer(a.svc, a.store, api.DefaultOptions()).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("shipratemanager listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info().Msg("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newWorkerCmd(load func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Refresh the shipping costs on SHIPRATE_SCHEDULE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := load()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			err = cron.NewWorker(a.svc, a.store, cfg.Schedule, a.alerter).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newExportCmd(load func() config.Config) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored shipping costs to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			table, err := a.store.ListShippingCosts(cmd.Context())
			if err != nil {
				return err
			}
			lastChanged := ""
			doc, err := snapshot.Read(cfg.Resolve(cfg.SnapshotPath))
			switch {
			case err == nil:
				lastChanged = doc.LastChanged
			case !errors.Is(err, snapshot.ErrNoSnapshot):
				return err
			}

			path := cfg.Resolve(out)
			if err := export.WriteFile(path, table, lastChanged); err != nil {
				return err
			}
			logger.Info().Str("path", filepath.Clean(path)).Int("rows", len(table)).Msg("workbook exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "data/shipping_costs.xlsx", "output workbook path")
	return cmd
}
