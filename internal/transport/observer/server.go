package observer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"brickwall.dev/internal/observerproto"
	"brickwall.dev/internal/protocol"
	simenc "brickwall.dev/internal/sim/encoding"
	"brickwall.dev/internal/sim/world"
	"brickwall.dev/internal/sim/world/terrain/store"
)

type Options struct {
	DefaultChunkRadius int
	MaxChunkRadius     int
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader

	sessions   atomic.Int64
	chunksSent atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger, opts Options) *Server {
	if opts.DefaultChunkRadius <= 0 {
		opts.DefaultChunkRadius = 6
	}
	if opts.MaxChunkRadius <= 0 {
		opts.MaxChunkRadius = 32
	}
	if opts.DefaultChunkRadius > opts.MaxChunkRadius {
		opts.DefaultChunkRadius = opts.MaxChunkRadius
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions is the number of connected scene viewers.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) ChunksSent() uint64 { return s.chunksSent.Load() }

func (s *Server) Bootstrap(t world.TimeOfDay) observerproto.BootstrapResponse {
	cats := s.world.Catalogs()
	keys := s.world.Index().ChunkKeys()
	chunks := make([][2]int, 0, len(keys))
	for _, k := range keys {
		chunks = append(chunks, [2]int{k.CX, k.CZ})
	}
	kinds := make([]string, 0, len(store.Kinds))
	for _, k := range store.Kinds {
		kinds = append(kinds, string(k))
	}
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         s.world.ID(),
		Digest:          s.world.Digest(),
		BrickCount:      s.world.Len(),
		Bounds:          s.world.Bounds(),
		ChunkSize:       store.ChunkSize,
		Chunks:          chunks,
		Palette:         append([]string(nil), cats.Colors.Palette...),
		Kinds:           kinds,
		Highlight:       cats.Highlight,
		Lighting:        world.LightingFor(t),
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t, err := world.ParseTimeOfDay(r.URL.Query().Get("time_of_day"))
		if err != nil {
			writeJSONError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.Bootstrap(t))
	}
}

func writeJSONError(rw http.ResponseWriter, status int, code, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(map[string]string{"code": code, "message": msg})
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, err := s.parseSubscribe(msg)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), time.Now().Add(time.Second))
			return
		}

		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := &session{
			srv:     s,
			display: world.NewDisplayState(s.world),
			out:     make(chan []byte, 256),
			subs:    make(chan observerproto.SubscribeMsg, 1),
			sent:    map[store.ChunkKey]bool{},
		}
		sess.subs <- sub

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()
		go sess.stream(ctx)

		// Reader loop: SUBSCRIBE updates and interaction.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := sess.handle(ctx, msg); err != nil {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), time.Now().Add(time.Second))
				cancel()
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

var (
	errExpectedSubscribe = errors.New("expected SUBSCRIBE")
	errBadVersion        = errors.New("unsupported protocol_version")
)

func (s *Server) parseSubscribe(msg []byte) (observerproto.SubscribeMsg, error) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, errExpectedSubscribe
	}
	if sub.Type != observerproto.TypeSubscribe {
		return sub, errExpectedSubscribe
	}
	if sub.ProtocolVersion != observerproto.Version {
		return sub, errBadVersion
	}
	if _, err := world.ParseTimeOfDay(sub.TimeOfDay); err != nil {
		return sub, err
	}
	s.normalizeSubscribe(&sub)
	return sub, nil
}

func (s *Server) normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.ChunkRadius <= 0 {
		sub.ChunkRadius = s.opts.DefaultChunkRadius
	}
	if sub.ChunkRadius > s.opts.MaxChunkRadius {
		sub.ChunkRadius = s.opts.MaxChunkRadius
	}
}

type session struct {
	srv     *Server
	display *world.DisplayState
	out     chan []byte
	subs    chan observerproto.SubscribeMsg

	// sent is owned by the stream goroutine.
	sent map[store.ChunkKey]bool
}

func (c *session) send(ctx context.Context, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case c.out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// stream sends every chunk within the subscribed radius once, nearest first. A newer
// subscription replaces the pending one.
func (c *session) stream(ctx context.Context) {
	for {
		var sub observerproto.SubscribeMsg
		select {
		case <-ctx.Done():
			return
		case sub = <-c.subs:
		}

		tod, _ := world.ParseTimeOfDay(sub.TimeOfDay)
		if !c.send(ctx, observerproto.LightingMsg{
			Type:            observerproto.TypeLighting,
			ProtocolVersion: observerproto.Version,
			Lighting:        world.LightingFor(tod),
		}) {
			return
		}

		nChunks, nBricks := 0, 0
		for _, k := range c.srv.world.Index().KeysNear(sub.Center[0], sub.Center[1], sub.ChunkRadius) {
			if c.sent[k] {
				continue
			}
			msg, err := chunkMsg(c.srv.world, k)
			if err != nil {
				c.srv.log.Printf("scene chunk %v: %v", k, err)
				continue
			}
			if !c.send(ctx, msg) {
				return
			}
			c.sent[k] = true
			c.srv.chunksSent.Add(1)
			nChunks++
			nBricks += msg.Count

			// Yield to a newer subscription between chunks.
			if len(c.subs) > 0 {
				break
			}
		}
		if len(c.subs) > 0 {
			continue
		}
		if !c.send(ctx, observerproto.SceneReadyMsg{
			Type:            observerproto.TypeSceneReady,
			ProtocolVersion: observerproto.Version,
			Chunks:          nChunks,
			Bricks:          nBricks,
		}) {
			return
		}
	}
}

func chunkMsg(w *world.World, k store.ChunkKey) (observerproto.ChunkBricksMsg, error) {
	ex, err := w.Chunk(k)
	if err != nil {
		return observerproto.ChunkBricksMsg{}, err
	}
	return observerproto.ChunkBricksMsg{
		Type:            observerproto.TypeChunkBricks,
		ProtocolVersion: observerproto.Version,
		CX:              k.CX,
		CZ:              k.CZ,
		Count:           len(ex.Indices),
		Indices:         ex.Indices,
		PosEncoding:     observerproto.EncodingPosDelta,
		Positions:       simenc.EncodePositions(ex.Positions),
		Encoding:        observerproto.EncodingRLE,
		Colors:          simenc.EncodeRLE(ex.ColorIDs),
		Kinds:           simenc.EncodeRLE(ex.KindIDs),
	}, nil
}

// handle processes one client message. A returned error closes the connection.
func (c *session) handle(ctx context.Context, msg []byte) error {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errors.New("bad json")
	}
	if base.ProtocolVersion != observerproto.Version {
		return errBadVersion
	}

	switch base.Type {
	case observerproto.TypeSubscribe:
		sub, err := c.srv.parseSubscribe(msg)
		if err != nil {
			return err
		}
		// Replace any subscription the streamer has not picked up yet.
		select {
		case <-c.subs:
		default:
		}
		c.subs <- sub
		return nil
	case observerproto.TypeHover, observerproto.TypeUnhover, observerproto.TypeSelect, observerproto.TypeDeselect:
	default:
		return errors.New("unknown message type")
	}

	var in observerproto.InteractMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		return errors.New("bad interaction")
	}

	switch in.Type {
	case observerproto.TypeHover:
		changes, err := c.display.Hover(in.Index)
		if err != nil {
			c.sendError(ctx, err)
			return nil
		}
		if len(changes) > 0 {
			c.send(ctx, observerproto.DisplayMsg{Type: observerproto.TypeDisplay, ProtocolVersion: observerproto.Version, Changes: changes})
		}
	case observerproto.TypeUnhover:
		ch, ok, err := c.display.Unhover(in.Index)
		if err != nil {
			c.sendError(ctx, err)
			return nil
		}
		if ok {
			c.send(ctx, observerproto.DisplayMsg{Type: observerproto.TypeDisplay, ProtocolVersion: observerproto.Version, Changes: []world.DisplayChange{ch}})
		}
	case observerproto.TypeSelect:
		ins, err := c.display.Select(in.Index)
		if err != nil {
			c.sendError(ctx, err)
			return nil
		}
		c.send(ctx, observerproto.SelectionMsg{Type: observerproto.TypeSelection, ProtocolVersion: observerproto.Version, Selection: ins})
	case observerproto.TypeDeselect:
		prev, ok := c.display.Deselect()
		if !ok {
			prev = -1
		}
		c.send(ctx, observerproto.DeselectedMsg{Type: observerproto.TypeDeselected, ProtocolVersion: observerproto.Version, Index: prev})
	}
	return nil
}

func (c *session) sendError(ctx context.Context, err error) {
	code := protocol.ErrInternal
	if errors.Is(err, world.ErrIndexOutOfRange) {
		code = protocol.ErrInvalidTarget
	}
	c.send(ctx, observerproto.ErrorMsg{
		Type:            observerproto.TypeError,
		ProtocolVersion: observerproto.Version,
		Code:            code,
		Message:         err.Error(),
	})
}
