package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brickwall.dev/internal/guide"
	"brickwall.dev/internal/persistence/indexdb"
	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world"
)

type runtimeIndex interface {
	world.GenerationLogger
	guide.ExchangeRecorder
	Close() error
	Flush(ctx context.Context) error
	UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BW_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported BW_INDEX_BACKEND: %s", backend)
	}
}

type multiGenerationLogger struct {
	a world.GenerationLogger
	b world.GenerationLogger
}

func (m multiGenerationLogger) WriteGeneration(entry world.GenerationLogEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteGeneration(entry)
	}
	if m.b != nil {
		_ = m.b.WriteGeneration(entry)
	}
	return err
}

type multiExchangeRecorder struct {
	a guide.ExchangeRecorder
	b guide.ExchangeRecorder
}

func (m multiExchangeRecorder) RecordExchange(e guide.Exchange) {
	if m.a != nil {
		m.a.RecordExchange(e)
	}
	if m.b != nil {
		m.b.RecordExchange(e)
	}
}
