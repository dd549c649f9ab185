package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"brickwall.dev/internal/guide"
	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world"
)

// SQLiteIndex is a queryable read model of generation runs and guide exchanges. Writes
// go through a single goroutine; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropGeneration atomic.Uint64
	dropChat       atomic.Uint64
}

type reqKind int

const (
	reqGeneration reqKind = iota + 1
	reqChat
	reqFlush
)

type req struct {
	kind reqKind

	generation world.GenerationLogEntry
	chat       guide.Exchange
	done       chan struct{}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits an append-only secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS generation_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world_id TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			digest TEXT NOT NULL,
			config_digest TEXT NOT NULL,
			palette_digest TEXT NOT NULL,
			bricks INTEGER NOT NULL,
			columns INTEGER NOT NULL,
			watchtowers INTEGER NOT NULL,
			trees INTEGER NOT NULL,
			peak_y INTEGER NOT NULL,
			generate_ms REAL NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generation_runs_world ON generation_runs(world_id, generated_at);`,
		`CREATE TABLE IF NOT EXISTS chat_exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			world_id TEXT NOT NULL,
			time_of_day TEXT NOT NULL,
			question TEXT NOT NULL,
			reply TEXT NOT NULL,
			fallback INTEGER NOT NULL,
			stale INTEGER NOT NULL,
			asked_at INTEGER NOT NULL,
			latency_ms REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_exchanges_session ON chat_exchanges(session_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteGeneration(entry world.GenerationLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqGeneration, generation: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropGeneration.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordExchange(e guide.Exchange) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqChat, chat: e}:
	default:
		s.dropChat.Add(1)
	}
}

// Flush blocks until every queued write is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	QueueDepth          int    `json:"queue_depth"`
	QueueCapacity       int    `json:"queue_capacity"`
	DropGenerationTotal uint64 `json:"drop_generation_total"`
	DropChatTotal       uint64 `json:"drop_chat_total"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropGenerationTotal: s.dropGeneration.Load(),
		DropChatTotal:       s.dropChat.Load(),
	}
}

// UpsertCatalogs stores the palette and tuning actually applied, keyed by digest.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(cats.Colors.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "palette", digest: cats.Colors.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Colors.ByID); len(b) > 0 {
		rows = append(rows, kv{name: "colors", digest: cats.Colors.DefsDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertGeneration, _ := s.db.Prepare(`INSERT INTO generation_runs(world_id,generated_at,digest,config_digest,palette_digest,bricks,columns,watchtowers,trees,peak_y,generate_ms,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertChat, _ := s.db.Prepare(`INSERT INTO chat_exchanges(session_id,seq,world_id,time_of_day,question,reply,fallback,stale,asked_at,latency_ms) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertGeneration != nil {
			_ = insertGeneration.Close()
		}
		if insertChat != nil {
			_ = insertChat.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 200
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// Commit when the queue drains so readers in other processes see idle writes.
		if opCount >= commitEvery || len(s.ch) == 0 || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqGeneration:
			g := r.generation
			raw, _ := json.Marshal(g)
			if insertGeneration != nil {
				if _, err := tx.Stmt(insertGeneration).Exec(
					g.WorldID,
					g.GeneratedAt,
					g.Digest,
					g.ConfigDigest,
					g.PaletteDigest,
					g.Counts.Bricks,
					g.Counts.Columns,
					g.Watchtowers,
					g.Counts.Trees,
					g.Counts.PeakY,
					g.GenerateMS,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqChat:
			c := r.chat
			if insertChat != nil {
				if _, err := tx.Stmt(insertChat).Exec(
					c.SessionID,
					int64(c.Seq),
					c.WorldID,
					c.TimeOfDay,
					c.Question,
					c.Reply,
					boolInt(c.Fallback),
					boolInt(c.Stale),
					c.AskedAt,
					c.LatencyMS,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
