package guide

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"brickwall.dev/internal/protocol"
	"brickwall.dev/internal/sim/tuning"
)

type fakeModel struct {
	calls   atomic.Int32
	text    string
	err     error
	delay   time.Duration
	panics  bool
	system  string
	history []protocol.ChatMessage
}

func (f *fakeModel) Generate(ctx context.Context, system string, history []protocol.ChatMessage) (string, error) {
	f.calls.Add(1)
	f.system = system
	f.history = history
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func question(text string) []protocol.ChatMessage {
	return []protocol.ChatMessage{
		{Role: protocol.RoleModel, Text: Welcome("day")},
		{Role: protocol.RoleUser, Text: text},
	}
}

func TestReplyWithoutKeyMakesNoCall(t *testing.T) {
	m := &fakeModel{text: "hello"}
	g := New(Config{APIKey: ""}, m, nil)
	if got := g.Reply(context.Background(), question("hi"), "ctx"); got != MissingKeyReply {
		t.Fatalf("reply=%q", got)
	}
	if m.calls.Load() != 0 {
		t.Fatalf("model called %d times", m.calls.Load())
	}
	if got := New(Config{APIKey: "k"}, nil, nil).Reply(context.Background(), question("hi"), ""); got != MissingKeyReply {
		t.Fatalf("nil model reply=%q", got)
	}
}

func TestReplyTransportFailure(t *testing.T) {
	m := &fakeModel{err: errors.New("dial tcp: connection refused")}
	g := New(Config{APIKey: "k"}, m, nil)
	if got := g.Reply(context.Background(), question("hi"), "ctx"); got != ConnectionReply {
		t.Fatalf("reply=%q", got)
	}
	if g.Stats().Failures != 1 {
		t.Fatalf("stats=%+v", g.Stats())
	}
}

func TestReplyTimeout(t *testing.T) {
	m := &fakeModel{text: "late", delay: time.Second}
	g := New(Config{APIKey: "k", Timeout: 20 * time.Millisecond}, m, nil)
	if got := g.Reply(context.Background(), question("hi"), "ctx"); got != ConnectionReply {
		t.Fatalf("reply=%q", got)
	}
}

func TestReplyRecoversFromPanic(t *testing.T) {
	g := New(Config{APIKey: "k"}, &fakeModel{panics: true}, nil)
	if got := g.Reply(context.Background(), question("hi"), "ctx"); got != ConnectionReply {
		t.Fatalf("reply=%q", got)
	}
}

func TestReplyEmptyText(t *testing.T) {
	g := New(Config{APIKey: "k"}, &fakeModel{text: "  \n"}, nil)
	if got := g.Reply(context.Background(), question("hi"), "ctx"); got != EmptyAnswerReply {
		t.Fatalf("reply=%q", got)
	}
}

func TestReplySendsHistoryAndContext(t *testing.T) {
	m := &fakeModel{text: " The wall is very long. "}
	g := New(Config{APIKey: "k"}, m, nil)
	got := g.Reply(context.Background(), question("How long is it?"), "Time of day: night.")
	if got != "The wall is very long." {
		t.Fatalf("reply=%q", got)
	}
	if !strings.Contains(m.system, "Lego Minifigure Historian") || !strings.HasSuffix(m.system, "Current Scene Context: Time of day: night.") {
		t.Fatalf("system=%q", m.system)
	}
	// The leading welcome turn is dropped; the question is kept.
	if len(m.history) != 1 || m.history[0].Text != "How long is it?" {
		t.Fatalf("history=%+v", m.history)
	}
}

func TestReplyWithoutUserTurn(t *testing.T) {
	m := &fakeModel{text: "x"}
	g := New(Config{APIKey: "k"}, m, nil)
	only := []protocol.ChatMessage{{Role: protocol.RoleModel, Text: "welcome"}}
	if got := g.Reply(context.Background(), only, ""); got != EmptyAnswerReply {
		t.Fatalf("reply=%q", got)
	}
	if m.calls.Load() != 0 {
		t.Fatalf("model called without a question")
	}
}

func TestTrimHistory(t *testing.T) {
	var h []protocol.ChatMessage
	for i := 0; i < 10; i++ {
		h = append(h,
			protocol.ChatMessage{Role: protocol.RoleUser, Text: "q"},
			protocol.ChatMessage{Role: protocol.RoleModel, Text: "a"},
		)
	}
	h = append(h, protocol.ChatMessage{Role: protocol.RoleUser, Text: "last"})

	out := trimHistory(h, 4)
	// Last four are a, q, a, last; the leading model turn is dropped.
	if len(out) != 3 || out[0].Role != protocol.RoleUser || out[2].Text != "last" {
		t.Fatalf("trimmed=%+v", out)
	}
	if trimHistory(h[:len(h)-1], 40) != nil {
		t.Fatalf("history ending with a model turn must be rejected")
	}
}

func TestWelcome(t *testing.T) {
	want := "Welcome to the Great Wall! I am your Lego Historian. It is currently sunset time here. Ask me anything about the wall's construction, history, or myths!"
	if got := Welcome("sunset"); got != want {
		t.Fatalf("welcome=%q", got)
	}
}

func TestContentsRoles(t *testing.T) {
	c := Contents([]protocol.ChatMessage{
		{Role: protocol.RoleUser, Text: "q"},
		{Role: protocol.RoleModel, Text: "a"},
	})
	if len(c) != 2 || c[0].Role != "user" || c[1].Role != "model" {
		t.Fatalf("contents roles wrong")
	}
	if c[1].Parts[0].Text != "a" {
		t.Fatalf("contents text wrong")
	}
}

func TestDefaultsMatchTuning(t *testing.T) {
	tg := tuning.Defaults().Guide
	if tg.Model != DefaultModel || tg.Timeout() != DefaultTimeout || tg.MaxHistory != DefaultMaxHistory {
		t.Fatalf("tuning guide=%+v, package defaults model=%s timeout=%s max_history=%d",
			tg, DefaultModel, DefaultTimeout, DefaultMaxHistory)
	}

	var c Config
	c.applyDefaults()
	if c.MaxHistory != tg.MaxHistory {
		t.Fatalf("zero Config max_history=%d want %d", c.MaxHistory, tg.MaxHistory)
	}
}
