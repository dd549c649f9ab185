package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"brickwall.dev/internal/guide"
	"brickwall.dev/internal/protocol"
	"brickwall.dev/internal/sim/world"
)

// maxInflight bounds concurrent guide requests per websocket session.
const maxInflight = 4

const maxBodyBytes = 256 * 1024

type Server struct {
	world    *world.World
	guide    *guide.Guide
	log      *log.Logger
	recorder guide.ExchangeRecorder

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	sessions atomic.Int64
	replies  atomic.Uint64
	stale    atomic.Uint64
}

// NewServer serves the guide chat. recorder may be nil.
func NewServer(w *world.World, g *guide.Guide, recorder guide.ExchangeRecorder, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		world:    w,
		guide:    g,
		log:      logger,
		recorder: recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) Replies() uint64 { return s.replies.Load() }

// StaleDropped counts replies discarded because a newer question superseded them.
func (s *Server) StaleDropped() uint64 { return s.stale.Load() }

func (s *Server) record(e guide.Exchange) {
	if s.recorder != nil {
		s.recorder.RecordExchange(e)
	}
}

// ChatHandler answers POST /v1/guide/chat with a single reply.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil || len(raw) > maxBodyBytes {
			writeError(rw, http.StatusRequestEntityTooLarge, protocol.ErrProtoBadRequest, "body too large")
			return
		}
		if err := protocol.Validate(protocol.SchemaChatRequest, raw); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		var req protocol.ChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		tod, err := world.ParseTimeOfDay(req.TimeOfDay)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
			return
		}

		start := time.Now()
		text := s.guide.Reply(r.Context(), req.History, s.world.SceneContext(tod))
		s.replies.Add(1)
		s.record(guide.Exchange{
			SessionID: "http",
			WorldID:   s.world.ID(),
			TimeOfDay: string(tod),
			Question:  lastUserText(req.History),
			Reply:     text,
			Fallback:  guide.IsFallback(text),
			AskedAt:   start.UnixMilli(),
			LatencyMS: msSince(start),
		})

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(protocol.ChatResponse{
			Message: protocol.ChatMessage{Role: protocol.RoleModel, Text: text, Timestamp: time.Now().UnixMilli()},
		})
	}
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(protocol.ErrorResponse{Code: code, Message: msg})
}

func lastUserText(h []protocol.ChatMessage) string {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == protocol.RoleUser {
			return h[i].Text
		}
	}
	return ""
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

// session is one websocket conversation. The server keeps its history.
type session struct {
	id  string
	out chan []byte
	seq guide.Sequencer

	inflight chan struct{}

	mu      sync.Mutex
	history []protocol.ChatMessage
}

func (c *session) send(ctx context.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	case <-ctx.Done():
	}
}

func (c *session) appendTurn(m protocol.ChatMessage) []protocol.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, m)
	return append([]protocol.ChatMessage(nil), c.history...)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		var wg sync.WaitGroup
		defer wg.Wait()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeChat {
				continue
			}
			if err := protocol.Validate(protocol.SchemaChat, msg); err != nil {
				sess.send(ctx, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrProtoBadRequest, Message: err.Error()})
				continue
			}
			var chat protocol.ChatMsg
			if err := json.Unmarshal(msg, &chat); err != nil {
				continue
			}
			tod, err := world.ParseTimeOfDay(chat.TimeOfDay)
			if err != nil {
				sess.send(ctx, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrBadRequest, Message: err.Error(), Seq: chat.Seq})
				continue
			}
			if latest := sess.seq.Latest(); chat.Seq <= latest {
				sess.send(ctx, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrStale, Message: fmt.Sprintf("seq must exceed %d", latest), Seq: chat.Seq})
				continue
			}
			// Seq advances only once the question holds a slot.
			select {
			case sess.inflight <- struct{}{}:
			default:
				sess.send(ctx, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrRateLimit, Message: "too many pending questions", Seq: chat.Seq})
				continue
			}
			sess.seq.Observe(chat.Seq)

			history := sess.appendTurn(protocol.ChatMessage{Role: protocol.RoleUser, Text: chat.Text, Timestamp: time.Now().UnixMilli()})
			wg.Add(1)
			go func(chat protocol.ChatMsg, tod world.TimeOfDay, history []protocol.ChatMessage) {
				defer wg.Done()
				defer func() { <-sess.inflight }()
				s.answer(ctx, sess, chat, tod, history)
			}(chat, tod, history)
		}
	}
}

func (s *Server) answer(ctx context.Context, sess *session, chat protocol.ChatMsg, tod world.TimeOfDay, history []protocol.ChatMessage) {
	start := time.Now()
	text := s.guide.Reply(ctx, history, s.world.SceneContext(tod))
	stale := !sess.seq.Accept(chat.Seq)

	s.record(guide.Exchange{
		SessionID: sess.id,
		Seq:       chat.Seq,
		WorldID:   s.world.ID(),
		TimeOfDay: string(tod),
		Question:  chat.Text,
		Reply:     text,
		Fallback:  guide.IsFallback(text),
		Stale:     stale,
		AskedAt:   start.UnixMilli(),
		LatencyMS: msSince(start),
	})
	if stale {
		s.stale.Add(1)
		return
	}
	msg := protocol.ChatMessage{Role: protocol.RoleModel, Text: text, Timestamp: time.Now().UnixMilli()}
	sess.appendTurn(msg)
	s.replies.Add(1)
	sess.send(ctx, protocol.ReplyMsg{
		Type:            protocol.TypeReply,
		ProtocolVersion: protocol.Version,
		Seq:             chat.Seq,
		Message:         msg,
	})
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	if err := protocol.Validate(protocol.SchemaHello, msg); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unsupported protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	tod, _ := world.ParseTimeOfDay(hello.TimeOfDay)

	welcome := protocol.ChatMessage{Role: protocol.RoleModel, Text: guide.Welcome(string(tod)), Timestamp: time.Now().UnixMilli()}
	sess := &session{
		id:       fmt.Sprintf("G%d", s.nextID.Add(1)),
		out:      make(chan []byte, 32),
		inflight: make(chan struct{}, maxInflight),
		history:  []protocol.ChatMessage{welcome},
	}
	b, _ := json.Marshal(protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		WorldID:         s.world.ID(),
		WorldDigest:     s.world.Digest(),
		Message:         welcome,
	})
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil
	}
	if s.log != nil {
		s.log.Printf("guide session %s joined (%s)", sess.id, hello.Name)
	}
	return sess
}
