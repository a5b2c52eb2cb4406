package rates

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/pkg/fileutil"
)

// Download reports what a Downloader did.
type Download struct {
	// Saved is false when the server answered with a non-200 status; the
	// destination was not touched in that case.
	Saved      bool
	StatusCode int
	File       RemoteFile
}

type Downloader struct {
	client *http.Client
}

func NewDownloader(client *http.Client) *Downloader {
	return &Downloader{client: client}
}

// Download fetches url and replaces path with the body. A non-200 answer is
// logged and returned as an unsaved Download with a nil error.
func (d *Downloader) Download(ctx context.Context, url, path string) (Download, error) {
	log := logger.Component("downloader")

	res, err := fetch(ctx, d.client, url)
	if err != nil {
		return Download{}, err
	}
	if res.StatusCode != http.StatusOK {
		log.Warn().Str("url", url).Int("status", res.StatusCode).Msg("failed to download file")
		return Download{StatusCode: res.StatusCode}, nil
	}

	if err := fileutil.WriteFileAtomically(path, bytes.NewReader(res.Body)); err != nil {
		return Download{}, fmt.Errorf("save %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bytes", len(res.Body)).Msg("file downloaded and saved")

	return Download{
		Saved:      true,
		StatusCode: res.StatusCode,
		File: RemoteFile{
			ContentHash:  fileutil.HashBytes(res.Body),
			LastModified: res.LastModified,
		},
	}, nil
}
