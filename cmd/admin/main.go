package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brickwall.dev/internal/guide"
	persistlog "brickwall.dev/internal/persistence/log"
	"brickwall.dev/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "flush":
			flushCmd(os.Args[2:])
			return
		case "chatlog":
			chatlogCmd(os.Args[2:])
			return
		case "generations":
			generationsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func worldDirFlag(fs *flag.FlagSet) func() string {
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "great_wall", "world id")
	return func() string {
		return filepath.Join(*dataDir, "worlds", *worldID)
	}
}

// chatlogCmd prints recorded guide exchanges from the compressed JSONL logs.
func chatlogCmd(args []string) {
	fs := flag.NewFlagSet("chatlog", flag.ExitOnError)
	worldDir := worldDirFlag(fs)
	session := fs.String("session", "", "session id filter (optional)")
	fallbacks := fs.Bool("fallbacks", false, "only print fixed fallback replies")
	_ = fs.Parse(args)

	entries, err := persistlog.ReadEntries[guide.Exchange](filepath.Join(worldDir(), "chat"), "chat")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read chat log:", err)
		os.Exit(1)
	}
	sid := strings.TrimSpace(*session)
	n := 0
	for _, e := range entries {
		if sid != "" && e.SessionID != sid {
			continue
		}
		if *fallbacks && !e.Fallback {
			continue
		}
		printJSON(e)
		n++
	}
	fmt.Fprintf(os.Stderr, "%d of %d exchanges\n", n, len(entries))
}

// generationsCmd prints recorded generation runs from the compressed JSONL logs.
func generationsCmd(args []string) {
	fs := flag.NewFlagSet("generations", flag.ExitOnError)
	worldDir := worldDirFlag(fs)
	full := fs.Bool("full", false, "print the full generator configuration")
	_ = fs.Parse(args)

	entries, err := persistlog.ReadEntries[world.GenerationLogEntry](filepath.Join(worldDir(), "generations"), "generations")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read generation log:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if *full {
			printJSON(e)
			continue
		}
		fmt.Printf("at=%d digest=%s config=%s bricks=%d watchtowers=%d trees=%d veg_seed=%d no_veg=%v ms=%.1f\n",
			e.GeneratedAt, e.Digest, e.ConfigDigest, e.Counts.Bricks, e.Watchtowers, e.Counts.Trees,
			e.Config.VegetationSeed, e.NoVegetation, e.GenerateMS)
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
