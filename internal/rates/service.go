package rates

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/metrics"
	"github.com/bher20/shipratemanager/internal/storage"
	"github.com/bher20/shipratemanager/pkg/fileutil"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

// Config controls how the refresh pipeline behaves. Paths are used as given;
// callers resolve them against their base directory.
type Config struct {
	DocumentURL  string
	DocumentPath string
	SnapshotPath string
	// RowLimit caps the number of extracted rows; see DefaultRowLimit.
	RowLimit int
	// Location is the zone last_changed is rendered in.
	Location *time.Location
}

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRefreshed Outcome = "refreshed"
)

// Result summarizes one Refresh call.
type Result struct {
	RunID       string         `json:"run_id"`
	Outcome     Outcome        `json:"outcome"`
	ContentHash string         `json:"content_hash,omitempty"`
	LastChanged string         `json:"last_changed,omitempty"`
	Rows        int            `json:"rows"`
	Downloaded  bool           `json:"downloaded"`
	Duration    time.Duration  `json:"duration"`
	Table       shipping.Table `json:"-"`
}

// Notifier is told about every refresh that rewrote the stores. Its errors
// are logged and never fail the refresh.
type Notifier interface {
	NotifyRefresh(ctx context.Context, res *Result) error
}

// TableParser turns the local document into a rate table.
type TableParser func(path string, rowLimit int) (shipping.Table, error)

// Service sequences inspect, download, extract and persist.
type Service struct {
	cfg        Config
	inspector  *Inspector
	downloader *Downloader
	persister  *Persister
	parse      TableParser
	notifiers  []Notifier
	now        func() time.Time

	mu sync.Mutex
}

func NewService(cfg Config, client *http.Client, st storage.Storage, notifiers ...Notifier) *Service {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		cfg:        cfg,
		inspector:  NewInspector(client),
		downloader: NewDownloader(client),
		persister:  NewPersister(st, cfg.SnapshotPath),
		parse:      ParseTablePDF,
		notifiers:  notifiers,
		now:        time.Now,
	}
}

// WithParser replaces the PDF table parser.
func (s *Service) WithParser(p TableParser) *Service {
	s.parse = p
	return s
}

// Config returns the service configuration.
func (s *Service) Config() Config { return s.cfg }

// Refresh skips all work when the remote document hashes the same as the
// local copy; otherwise it downloads, extracts and persists. Concurrent calls
// are serialized.
func (s *Service) Refresh(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := logger.Component("rates").With().Str("run_id", res.RunID).Logger()

	err := s.refresh(ctx, res)
	res.Duration = time.Since(started)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("refresh failed")
		return nil, err
	}
	metrics.RefreshesTotal.WithLabelValues(string(res.Outcome)).Inc()

	if res.Outcome == OutcomeSkipped {
		log.Info().Str("hash", res.ContentHash).Msg("file is already up to date, no need to download")
		return res, nil
	}

	log.Info().
		Int("rows", res.Rows).
		Str("last_changed", res.LastChanged).
		Dur("duration", res.Duration).
		Msg("shipping costs refreshed")

	for _, n := range s.notifiers {
		if err := n.NotifyRefresh(ctx, res); err != nil {
			log.Warn().Err(err).Msg("refresh notification failed")
		}
	}
	return res, nil
}

func (s *Service) refresh(ctx context.Context, res *Result) error {
	log := logger.Component("rates").With().Str("run_id", res.RunID).Logger()

	remote, err := s.inspector.Inspect(ctx, s.cfg.DocumentURL)
	if err != nil {
		return fmt.Errorf("inspect remote: %w", err)
	}
	remoteFile, available := remote.File()
	if available {
		res.ContentHash = remoteFile.ContentHash
		res.LastChanged = s.normalize(remoteFile.LastModified)
	} else {
		metrics.RemoteUnavailableTotal.Inc()
		log.Warn().Int("status", remote.StatusCode).Msg("remote state unavailable, downloading unconditionally")
	}

	exists, err := fileutil.Exists(s.cfg.DocumentPath)
	if err != nil {
		return fmt.Errorf("stat local document: %w", err)
	}
	if exists && available {
		localHash, err := fileutil.HashFile(s.cfg.DocumentPath)
		if err != nil {
			return fmt.Errorf("hash local document: %w", err)
		}
		if localHash == remoteFile.ContentHash {
			res.Outcome = OutcomeSkipped
			return nil
		}
	}

	dl, err := s.downloader.Download(ctx, s.cfg.DocumentURL, s.cfg.DocumentPath)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	res.Downloaded = dl.Saved
	if !dl.Saved {
		metrics.DownloadFailuresTotal.Inc()
	} else {
		res.ContentHash = dl.File.ContentHash
		if res.LastChanged == "" {
			res.LastChanged = s.normalize(dl.File.LastModified)
		}
	}
	if res.LastChanged == "" {
		res.LastChanged = s.now().In(s.cfg.Location).Format(LastChangedLayout)
	}

	table, err := s.parse(s.cfg.DocumentPath, s.cfg.RowLimit)
	if err != nil {
		return fmt.Errorf("extract table: %w", err)
	}
	if err := s.persister.Save(ctx, table, res.LastChanged); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	metrics.ExtractedRows.Set(float64(len(table)))
	res.Outcome = OutcomeRefreshed
	res.Rows = len(table)
	res.Table = table
	return nil
}

// normalize renders a Last-Modified header, or returns "" when it is absent
// or unparsable.
func (s *Service) normalize(header string) string {
	if header == "" {
		return ""
	}
	out, t, err := NormalizeLastModified(header, s.cfg.Location)
	if err != nil {
		logger.Component("rates").Warn().Err(err).Msg("ignoring Last-Modified header")
		return ""
	}
	metrics.DocumentLastChanged.Set(float64(t.Unix()))
	return out
}
