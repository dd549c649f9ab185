// Package guide answers visitor questions about the scene through a hosted language
// model. Reply never fails: every error path resolves to a fixed, displayable string.
package guide

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"brickwall.dev/internal/protocol"
)

// Fixed replies shown to the visitor.
const (
	MissingKeyReply   = "Please provide a valid API_KEY in the environment to chat with the guide."
	ConnectionReply   = "Sorry, I lost my connection to the history books!"
	EmptyAnswerReply  = "I'm having trouble finding that brick of information right now."
	DefaultModel      = "gemini-2.5-flash"
	DefaultTimeout    = 20 * time.Second
	DefaultMaxHistory = 32
)

// Model generates one reply for a conversation. Implementations may return an empty
// string; Guide converts that into EmptyAnswerReply.
type Model interface {
	Generate(ctx context.Context, system string, history []protocol.ChatMessage) (string, error)
}

type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxHistory int
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
}

type Guide struct {
	cfg   Config
	model Model
	log   *log.Logger

	requests  atomic.Uint64
	noKey     atomic.Uint64
	failures  atomic.Uint64
	empty     atomic.Uint64
	answered  atomic.Uint64
	latencyUS atomic.Uint64
}

// New builds a guide. model may be nil when cfg.APIKey is empty.
func New(cfg Config, model Model, logger *log.Logger) *Guide {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Guide{cfg: cfg, model: model, log: logger}
}

func (g *Guide) Config() Config { return g.cfg }

// Reply returns the guide's answer to the last user turn of history.
func (g *Guide) Reply(ctx context.Context, history []protocol.ChatMessage, sceneContext string) string {
	g.requests.Add(1)
	if strings.TrimSpace(g.cfg.APIKey) == "" || g.model == nil {
		g.noKey.Add(1)
		return MissingKeyReply
	}

	turns := trimHistory(history, g.cfg.MaxHistory)
	if len(turns) == 0 {
		g.empty.Add(1)
		g.log.Printf("guide: no user turn in history (%d messages)", len(history))
		return EmptyAnswerReply
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := g.generate(ctx, SystemInstruction(sceneContext), turns)
	g.latencyUS.Add(uint64(time.Since(start).Microseconds()))
	if err != nil {
		g.failures.Add(1)
		g.log.Printf("guide: model %s: %v", g.cfg.Model, err)
		return ConnectionReply
	}
	text = strings.TrimSpace(text)
	if text == "" {
		g.empty.Add(1)
		return EmptyAnswerReply
	}
	g.answered.Add(1)
	return text
}

// generate shields callers from a panicking model implementation.
func (g *Guide) generate(ctx context.Context, system string, turns []protocol.ChatMessage) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panic: %v", r)
		}
	}()
	text, err = g.model.Generate(ctx, system, turns)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return text, err
}

// trimHistory keeps the last max turns, drops leading model turns (the welcome message)
// and requires the conversation to end with a user turn.
func trimHistory(history []protocol.ChatMessage, max int) []protocol.ChatMessage {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	start := 0
	for start < len(history) && history[start].Role != protocol.RoleUser {
		start++
	}
	out := make([]protocol.ChatMessage, 0, len(history)-start)
	for _, m := range history[start:] {
		if m.Role != protocol.RoleUser && m.Role != protocol.RoleModel {
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 || out[len(out)-1].Role != protocol.RoleUser {
		return nil
	}
	return out
}

// Welcome is the guide's opening message for a time of day.
func Welcome(timeOfDay string) string {
	if timeOfDay == "" {
		timeOfDay = "day"
	}
	return fmt.Sprintf("Welcome to the Great Wall! I am your Lego Historian. It is currently %s time here. Ask me anything about the wall's construction, history, or myths!", timeOfDay)
}

// SystemInstruction is the persona prompt with the current scene appended.
func SystemInstruction(sceneContext string) string {
	return "You are a knowledgeable and enthusiastic tour guide at the Great Wall of China.\n" +
		"The user is viewing a 3D LEGO rendering of the wall.\n" +
		"Keep your answers concise (under 100 words), fun, and educational.\n" +
		"You are specifically a \"Lego Minifigure Historian\".\n" +
		"Current Scene Context: " + sceneContext
}

type Stats struct {
	Requests  uint64 `json:"requests"`
	NoKey     uint64 `json:"no_key"`
	Failures  uint64 `json:"failures"`
	Empty     uint64 `json:"empty"`
	Answered  uint64 `json:"answered"`
	LatencyUS uint64 `json:"latency_us"`
}

func (g *Guide) Stats() Stats {
	return Stats{
		Requests:  g.requests.Load(),
		NoKey:     g.noKey.Load(),
		Failures:  g.failures.Load(),
		Empty:     g.empty.Load(),
		Answered:  g.answered.Load(),
		LatencyUS: g.latencyUS.Load(),
	}
}
