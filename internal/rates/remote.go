package rates

import (
	"context"
	"net/http"

	"github.com/bher20/shipratemanager/pkg/fileutil"
)

// RemoteFile describes the current remote document without keeping its body.
type RemoteFile struct {
	// ContentHash is the hex SHA-256 of the body.
	ContentHash string `json:"content_hash"`
	// LastModified is the raw Last-Modified header.
	LastModified string `json:"last_modified"`
}

// RemoteResult is either an available RemoteFile or Unavailable, carrying the
// status code that made it so. Callers must check File's second return.
type RemoteResult struct {
	file       RemoteFile
	available  bool
	StatusCode int
}

func remoteAvailable(f RemoteFile) RemoteResult {
	return RemoteResult{file: f, available: true, StatusCode: http.StatusOK}
}

func remoteUnavailable(status int) RemoteResult {
	return RemoteResult{StatusCode: status}
}

// Available reports whether the remote state could be determined.
func (r RemoteResult) Available() bool { return r.available }

// File returns the descriptor and whether it is present.
func (r RemoteResult) File() (RemoteFile, bool) { return r.file, r.available }

// Inspector fetches the remote document to learn its hash and date.
type Inspector struct {
	client *http.Client
}

func NewInspector(client *http.Client) *Inspector {
	return &Inspector{client: client}
}

// Inspect issues a GET for url. A non-200 response is Unavailable, not an
// error; transport failures are errors.
func (i *Inspector) Inspect(ctx context.Context, url string) (RemoteResult, error) {
	res, err := fetch(ctx, i.client, url)
	if err != nil {
		return RemoteResult{}, err
	}
	if res.StatusCode != http.StatusOK {
		return remoteUnavailable(res.StatusCode), nil
	}
	return remoteAvailable(RemoteFile{
		ContentHash:  fileutil.HashBytes(res.Body),
		LastModified: res.LastModified,
	}), nil
}
