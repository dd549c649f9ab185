package protocol

import (
	"strings"
	"testing"
)

func TestServerErrorCodesAreKnown(t *testing.T) {
	emitted := []string{ErrProtoBadRequest, ErrBadRequest, ErrInvalidTarget, ErrRateLimit, ErrStale, ErrInternal}
	seen := map[string]bool{}
	for _, c := range emitted {
		if !IsKnownCode(c) || !strings.HasPrefix(c, "E_") {
			t.Fatalf("code %q not recognised", c)
		}
		if seen[c] {
			t.Fatalf("code %q declared twice", c)
		}
		seen[c] = true
	}
	if len(seen) != len(knownCodes) {
		t.Fatalf("knownCodes has %d entries, %d declared", len(knownCodes), len(seen))
	}
}

func TestIsKnownCodeRejectsForeignCodes(t *testing.T) {
	if !IsKnownCode("") {
		t.Fatalf("missing code should be accepted")
	}
	for _, c := range []string{"E_QUOTA", "e_stale", "E_STALE ", "STALE"} {
		if IsKnownCode(c) {
			t.Fatalf("%q accepted", c)
		}
	}
}
