package rates

import (
	"testing"
	"time"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestNormalizeLastModified(t *testing.T) {
	got, ts, err := NormalizeLastModified("Tue, 01 Aug 2023 06:48:39 GMT", istanbul(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2023-08-01 09:48:39 +0300" {
		t.Errorf("unexpected normalized date %q", got)
	}
	if ts.Unix() != 1690872519 {
		t.Errorf("unexpected unix time %d", ts.Unix())
	}
}

func TestNormalizeLastModified_NilLocationIsUTC(t *testing.T) {
	got, _, err := NormalizeLastModified("Tue, 01 Aug 2023 06:48:39 GMT", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2023-08-01 06:48:39 +0000" {
		t.Errorf("unexpected normalized date %q", got)
	}
}

func TestNormalizeLastModified_Invalid(t *testing.T) {
	for _, h := range []string{"", "   ", "yesterday"} {
		if _, _, err := NormalizeLastModified(h, time.UTC); err == nil {
			t.Errorf("expected error for %q", h)
		}
	}
}
