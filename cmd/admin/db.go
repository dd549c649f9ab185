package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brickwall.dev/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	worldDir := worldDirFlag(fs)
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	session := fs.String("session", "", "session_id filter (chats)")
	_ = fs.Parse(args)

	q := "generations"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(worldDir(), "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	switch q {
	case "generations":
		runs, err := idx.ListGenerations(ctx, "", *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range runs {
			printJSON(struct {
				ID          int64   `json:"id"`
				WorldID     string  `json:"world_id"`
				GeneratedAt int64   `json:"generated_at"`
				Digest      string  `json:"digest"`
				Bricks      int     `json:"bricks"`
				Watchtowers int     `json:"watchtowers"`
				Trees       int     `json:"trees"`
				VegSeed     int64   `json:"vegetation_seed"`
				GenerateMS  float64 `json:"generate_ms"`
			}{
				ID:          r.ID,
				WorldID:     r.Entry.WorldID,
				GeneratedAt: r.Entry.GeneratedAt,
				Digest:      r.Entry.Digest,
				Bricks:      r.Entry.Counts.Bricks,
				Watchtowers: r.Entry.Watchtowers,
				Trees:       r.Entry.Counts.Trees,
				VegSeed:     r.Entry.Config.VegetationSeed,
				GenerateMS:  r.Entry.GenerateMS,
			})
		}

	case "chats":
		chats, err := idx.ListChats(ctx, strings.TrimSpace(*session), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, c := range chats {
			printJSON(c)
		}

	case "summary":
		sum, err := idx.SummarizeChats(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		printJSON(sum)

	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (want generations, chats or summary)\n", q)
		os.Exit(2)
	}
}
