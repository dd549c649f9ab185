package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"brickwall.dev/internal/guide"
	"brickwall.dev/internal/sim/world"
)

// GenerationRun is one row of generation_runs with its full log entry.
type GenerationRun struct {
	ID    int64                    `json:"id"`
	Entry world.GenerationLogEntry `json:"entry"`
}

// ListGenerations returns the newest runs first. An empty worldID matches every world.
func (s *SQLiteIndex) ListGenerations(ctx context.Context, worldID string, limit int) ([]GenerationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, raw_json FROM generation_runs WHERE (?1 = '' OR world_id = ?1) ORDER BY id DESC LIMIT ?2`,
		worldID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationRun
	for rows.Next() {
		var (
			run GenerationRun
			raw string
		)
		if err := rows.Scan(&run.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &run.Entry); err != nil {
			return nil, fmt.Errorf("generation_runs %d: %w", run.ID, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListChats returns exchanges oldest first. An empty sessionID matches every session.
func (s *SQLiteIndex) ListChats(ctx context.Context, sessionID string, limit int) ([]guide.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, world_id, time_of_day, question, reply, fallback, stale, asked_at, latency_ms
		FROM (
			SELECT * FROM chat_exchanges WHERE (?1 = '' OR session_id = ?1) ORDER BY id DESC LIMIT ?2
		) ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []guide.Exchange
	for rows.Next() {
		var (
			e               guide.Exchange
			seq             int64
			fallback, stale int
		)
		if err := rows.Scan(&e.SessionID, &seq, &e.WorldID, &e.TimeOfDay, &e.Question, &e.Reply, &fallback, &stale, &e.AskedAt, &e.LatencyMS); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Fallback = fallback != 0
		e.Stale = stale != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// ChatSummary aggregates exchanges for the admin CLI.
type ChatSummary struct {
	Exchanges int64   `json:"exchanges"`
	Sessions  int64   `json:"sessions"`
	Fallbacks int64   `json:"fallbacks"`
	Stale     int64   `json:"stale"`
	AvgMS     float64 `json:"avg_latency_ms"`
}

func (s *SQLiteIndex) SummarizeChats(ctx context.Context) (ChatSummary, error) {
	var (
		sum ChatSummary
		avg sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT session_id), COALESCE(SUM(fallback),0), COALESCE(SUM(stale),0), AVG(latency_ms)
		FROM chat_exchanges`).Scan(&sum.Exchanges, &sum.Sessions, &sum.Fallbacks, &sum.Stale, &avg)
	if err != nil {
		return ChatSummary{}, err
	}
	sum.AvgMS = avg.Float64
	return sum, nil
}
