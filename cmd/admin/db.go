package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"vblocks.ai/internal/persistence/indexdb"
)

func openIndex(fs *flag.FlagSet, args []string) *indexdb.Reader {
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite index path (default: <data>/index/vblocks.sqlite)")
	_ = fs.Parse(args)

	r, err := indexdb.OpenReader(indexPath(*dataDir, *dbPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	return r
}

func statsCmd(args []string) {
	r := openIndex(flag.NewFlagSet("stats", flag.ExitOnError), args)
	defer r.Close()

	counts, err := r.Counts(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	var created, deleted int64
	for _, c := range counts {
		fmt.Printf("%-24s %-6s %d\n", c.Avatar, c.Action, c.Count)
		switch c.Action {
		case "CREATE":
			created += c.Count
		case "DELETE":
			deleted += c.Count
		}
	}
	fmt.Printf("total created=%d deleted=%d net=%d\n", created, deleted, created-deleted)
}

func catalogsCmd(args []string) {
	r := openIndex(flag.NewFlagSet("catalogs", flag.ExitOnError), args)
	defer r.Close()

	rows, err := r.Catalogs(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, c := range rows {
		_ = enc.Encode(struct {
			Name      string          `json:"name"`
			Digest    string          `json:"digest"`
			UpdatedAt string          `json:"updated_at"`
			JSON      json.RawMessage `json:"json"`
		}{c.Name, c.Digest, c.UpdatedAt, json.RawMessage(c.JSON)})
	}
}
