package main

import (
	"fmt"
	"io"
	"sort"

	"brickwall.dev/internal/guide"
	"brickwall.dev/internal/sim/world"
	"brickwall.dev/internal/sim/world/terrain/store"
	"brickwall.dev/internal/transport/observer"
	"brickwall.dev/internal/transport/ws"
)

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(out io.Writer, w *world.World, g *guide.Guide, obs *observer.Server, chat *ws.Server, idx runtimeIndex) {
	m := w.Metrics()
	id := m.WorldID

	fmt.Fprintf(out, "# HELP brickwall_world_bricks Bricks in the generated scene.\n")
	fmt.Fprintf(out, "# TYPE brickwall_world_bricks gauge\n")
	fmt.Fprintf(out, "brickwall_world_bricks{world=%q} %d\n", id, m.Bricks)

	fmt.Fprintf(out, "# HELP brickwall_world_bricks_by_kind Bricks per kind.\n")
	fmt.Fprintf(out, "# TYPE brickwall_world_bricks_by_kind gauge\n")
	kinds := make([]string, 0, len(m.ByKind))
	for k := range m.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "brickwall_world_bricks_by_kind{world=%q,kind=%q} %d\n", id, k, m.ByKind[store.Kind(k)])
	}

	fmt.Fprintf(out, "# HELP brickwall_world_chunks Streaming chunks in the scene.\n")
	fmt.Fprintf(out, "# TYPE brickwall_world_chunks gauge\n")
	fmt.Fprintf(out, "brickwall_world_chunks{world=%q} %d\n", id, m.Chunks)

	fmt.Fprintf(out, "# HELP brickwall_world_watchtowers Watchtowers along the wall.\n")
	fmt.Fprintf(out, "# TYPE brickwall_world_watchtowers gauge\n")
	fmt.Fprintf(out, "brickwall_world_watchtowers{world=%q} %d\n", id, m.Watchtowers)

	fmt.Fprintf(out, "# HELP brickwall_world_generate_ms Scene generation time in milliseconds.\n")
	fmt.Fprintf(out, "# TYPE brickwall_world_generate_ms gauge\n")
	fmt.Fprintf(out, "brickwall_world_generate_ms{world=%q} %.3f\n", id, m.GenerateMS)

	fmt.Fprintf(out, "# HELP brickwall_scene_sessions Connected scene viewers.\n")
	fmt.Fprintf(out, "# TYPE brickwall_scene_sessions gauge\n")
	fmt.Fprintf(out, "brickwall_scene_sessions{world=%q} %d\n", id, obs.Sessions())

	fmt.Fprintf(out, "# HELP brickwall_scene_chunks_sent_total Chunks streamed to viewers.\n")
	fmt.Fprintf(out, "# TYPE brickwall_scene_chunks_sent_total counter\n")
	fmt.Fprintf(out, "brickwall_scene_chunks_sent_total{world=%q} %d\n", id, obs.ChunksSent())

	fmt.Fprintf(out, "# HELP brickwall_guide_sessions Connected guide chat sessions.\n")
	fmt.Fprintf(out, "# TYPE brickwall_guide_sessions gauge\n")
	fmt.Fprintf(out, "brickwall_guide_sessions{world=%q} %d\n", id, chat.Sessions())

	fmt.Fprintf(out, "# HELP brickwall_guide_replies_total Replies delivered to visitors.\n")
	fmt.Fprintf(out, "# TYPE brickwall_guide_replies_total counter\n")
	fmt.Fprintf(out, "brickwall_guide_replies_total{world=%q} %d\n", id, chat.Replies())

	fmt.Fprintf(out, "# HELP brickwall_guide_stale_dropped_total Replies discarded because a newer question arrived.\n")
	fmt.Fprintf(out, "# TYPE brickwall_guide_stale_dropped_total counter\n")
	fmt.Fprintf(out, "brickwall_guide_stale_dropped_total{world=%q} %d\n", id, chat.StaleDropped())

	gs := g.Stats()
	fmt.Fprintf(out, "# HELP brickwall_guide_requests_total Guide requests by outcome.\n")
	fmt.Fprintf(out, "# TYPE brickwall_guide_requests_total counter\n")
	fmt.Fprintf(out, "brickwall_guide_requests_total{world=%q,outcome=%q} %d\n", id, "answered", gs.Answered)
	fmt.Fprintf(out, "brickwall_guide_requests_total{world=%q,outcome=%q} %d\n", id, "no_key", gs.NoKey)
	fmt.Fprintf(out, "brickwall_guide_requests_total{world=%q,outcome=%q} %d\n", id, "failure", gs.Failures)
	fmt.Fprintf(out, "brickwall_guide_requests_total{world=%q,outcome=%q} %d\n", id, "empty", gs.Empty)

	fmt.Fprintf(out, "# HELP brickwall_guide_latency_seconds_total Cumulative model latency.\n")
	fmt.Fprintf(out, "# TYPE brickwall_guide_latency_seconds_total counter\n")
	fmt.Fprintf(out, "brickwall_guide_latency_seconds_total{world=%q} %.6f\n", id, float64(gs.LatencyUS)/1e6)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(out, "# HELP brickwall_index_queue_depth Current index writer queue depth.\n")
	fmt.Fprintf(out, "# TYPE brickwall_index_queue_depth gauge\n")
	fmt.Fprintf(out, "brickwall_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(out, "# HELP brickwall_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(out, "# TYPE brickwall_index_queue_capacity gauge\n")
	fmt.Fprintf(out, "brickwall_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(out, "# HELP brickwall_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(out, "# TYPE brickwall_index_dropped_total counter\n")
	fmt.Fprintf(out, "brickwall_index_dropped_total{table=%q} %d\n", "generation_runs", s.DropGenerationTotal)
	fmt.Fprintf(out, "brickwall_index_dropped_total{table=%q} %d\n", "chat_exchanges", s.DropChatTotal)
}
