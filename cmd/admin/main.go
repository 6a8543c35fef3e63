package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vblocks.ai/internal/build/placement"
	"vblocks.ai/internal/persistence/indexdb"
	persistlog "vblocks.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "stats":
			statsCmd(os.Args[2:])
			return
		case "catalogs":
			catalogsCmd(os.Args[2:])
			return
		case "health":
			healthCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin audit|stats|catalogs|health [flags]")
	os.Exit(2)
}

func indexPath(dataDir, dbPath string) string {
	if p := strings.TrimSpace(dbPath); p != "" {
		return p
	}
	return filepath.Join(dataDir, "index", "vblocks.sqlite")
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite index path (default: <data>/index/vblocks.sqlite)")
	avatar := fs.String("avatar", "", "only entries for this avatar id")
	cellFlag := fs.String("cell", "", "only entries for one lattice cell: x,y,z")
	limit := fs.Int("limit", 50, "result limit")
	files := fs.Bool("files", false, "read the zstd JSONL audit files instead of the index")
	_ = fs.Parse(args)

	var cell *[3]int64
	if strings.TrimSpace(*cellFlag) != "" {
		c, err := parseCell(*cellFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -cell:", err)
			os.Exit(2)
		}
		cell = &c
	}

	var out []placement.AuditEntry
	if *files {
		var err error
		out, err = auditFromFiles(persistlog.AuditDir(*dataDir), *avatar, cell, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read audit:", err)
			os.Exit(1)
		}
	} else {
		r, err := indexdb.OpenReader(indexPath(*dataDir, *dbPath))
		if err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
		defer r.Close()
		out, err = r.Audit(context.Background(), indexdb.AuditQuery{Avatar: *avatar, Cell: cell, Limit: *limit})
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	for _, e := range out {
		_ = enc.Encode(e)
	}
}

// auditFromFiles returns the newest matching entries, newest first, like the index query.
func auditFromFiles(dir, avatar string, cell *[3]int64, limit int) ([]placement.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var all []placement.AuditEntry
	err := persistlog.ReadAudit(dir, func(e placement.AuditEntry) error {
		if avatar != "" && e.Avatar != avatar {
			return nil
		}
		if cell != nil && e.Cell != *cell {
			return nil
		}
		all = append(all, e)
		if len(all) > limit {
			all = all[1:]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func parseCell(s string) ([3]int64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]int64{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var c [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return [3]int64{}, err
		}
		c[i] = n
	}
	return c, nil
}
