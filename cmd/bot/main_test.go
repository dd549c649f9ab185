package main

import (
	"strings"
	"testing"

	"brickwall.dev/internal/protocol"
)

func TestErrorLineFlagsUnknownCodes(t *testing.T) {
	known := errorLine(protocol.ErrorMsg{Code: protocol.ErrRateLimit, Message: "too many pending questions", Seq: 5})
	if known != "ERROR seq=5 code=E_RATE_LIMIT: too many pending questions" {
		t.Fatalf("known=%q", known)
	}
	unknown := errorLine(protocol.ErrorMsg{ProtocolVersion: "2.0", Code: "E_QUOTA", Message: "slow down", Seq: 6})
	if !strings.Contains(unknown, `unrecognised code "E_QUOTA"`) || !strings.Contains(unknown, "protocol_version=2.0") {
		t.Fatalf("unknown=%q", unknown)
	}
}
