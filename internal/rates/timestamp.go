package rates

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LastChangedLayout is the format of the snapshot's last_changed field,
// e.g. "2023-08-01 09:48:39 +0300".
const LastChangedLayout = "2006-01-02 15:04:05 -0700"

// NormalizeLastModified parses a Last-Modified header and renders it in loc
// using LastChangedLayout.
func NormalizeLastModified(header string, loc *time.Location) (string, time.Time, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", time.Time{}, fmt.Errorf("empty Last-Modified header")
	}
	t, err := http.ParseTime(header)
	if err != nil {
		var ok bool
		for _, layout := range []string{time.RFC1123Z, time.RFC3339, LastChangedLayout} {
			if t, err = time.Parse(layout, header); err == nil {
				ok = true
				break
			}
		}
		if !ok {
			return "", time.Time{}, fmt.Errorf("parse Last-Modified %q: %w", header, err)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return t.Format(LastChangedLayout), t, nil
}
