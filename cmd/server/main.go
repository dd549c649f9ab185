package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"brickwall.dev/internal/guide"
	persistlog "brickwall.dev/internal/persistence/log"
	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world"
	"brickwall.dev/internal/transport/observer"
	"brickwall.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "", "world id (default: tuning world_id)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index (generation runs + chat exchanges)")

		apiKeyEnv        = flag.String("api_key_env", "API_KEY", "environment variable holding the guide model credential")
		randomVegetation = flag.Bool("random_vegetation", false, "draw a fresh vegetation seed at startup")
		noVegetation     = flag.Bool("no_vegetation", false, "generate the scene without trees and bushes")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if id := strings.TrimSpace(*worldID); id != "" {
		tune.WorldID = id
	}
	if *randomVegetation {
		tune.WorldGen.VegetationSeed = time.Now().UnixNano()
	}

	worldDir := filepath.Join(*dataDir, "worlds", tune.WorldID)
	_ = os.MkdirAll(worldDir, 0o755)

	// Optional: read-model index backend (JSONL logs remain the source of truth).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	wcfg := world.ConfigFromTuning(tune)
	wcfg.NoVegetation = *noVegetation
	w, err := world.New(wcfg, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	m := w.Metrics()
	logger.Printf("generated world=%s bricks=%d watchtowers=%d trees=%d digest=%s in %.1fms",
		m.WorldID, m.Bricks, m.Watchtowers, m.Trees, m.Digest[:12], m.GenerateMS)

	genLog := persistlog.NewGenerationLogger(worldDir)
	chatLog := persistlog.NewChatLogger(worldDir, logger.Printf)
	defer genLog.Close()
	defer chatLog.Close()
	logger.Printf("logs: generations=%s chat=%s", genLog.Dir(), chatLog.Dir())

	var (
		genSink  world.GenerationLogger = genLog
		chatSink guide.ExchangeRecorder = chatLog
	)
	if idx != nil {
		genSink = multiGenerationLogger{a: genLog, b: idx}
		chatSink = multiExchangeRecorder{a: chatLog, b: idx}
	}
	if err := genSink.WriteGeneration(w.LogEntry(time.Now())); err != nil {
		logger.Printf("generation log: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	apiKey := strings.TrimSpace(os.Getenv(*apiKeyEnv))
	var model guide.Model
	if apiKey != "" {
		gm, err := guide.NewGeminiModel(ctx, apiKey, tune.Guide.Model, nil)
		if err != nil {
			logger.Printf("guide model: %v (replies will fall back)", err)
		} else {
			model = gm
		}
	} else {
		logger.Printf("guide disabled: %s is empty", *apiKeyEnv)
	}
	g := guide.New(guide.Config{
		APIKey:     apiKey,
		Model:      tune.Guide.Model,
		Timeout:    tune.Guide.Timeout(),
		MaxHistory: tune.Guide.MaxHistory,
	}, model, logger)

	obsSrv := observer.NewServer(w, logger, observer.Options{
		DefaultChunkRadius: tune.Server.ChunkRadius,
		MaxChunkRadius:     tune.Server.MaxChunkRadius,
	})
	guideSrv := ws.NewServer(w, g, chatSink, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w, g, obsSrv, guideSrv, idx)
	})

	mux.HandleFunc("/v1/scene/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/scene/ws", obsSrv.WSHandler())
	mux.HandleFunc("/v1/guide/chat", guideSrv.ChatHandler())
	mux.HandleFunc("/v1/guide/ws", guideSrv.Handler())

	enableAdminHTTP := envBool("BW_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("BW_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Metrics world.WorldMetrics `json:"metrics"`
				Guide   guide.Stats        `json:"guide"`
				Config  tuning.WorldGen    `json:"config"`
				NoVeg   bool               `json:"no_vegetation"`
			}{
				Metrics: w.Metrics(),
				Guide:   g.Stats(),
				Config:  w.Config().Gen,
				NoVeg:   w.Config().NoVegetation,
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/index/flush", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			if idx == nil {
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "index": "disabled"})
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			if err := idx.Flush(ctx2); err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "stats": idx.Stats()})
		})
	} else {
		logger.Printf("admin endpoints disabled (BW_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
