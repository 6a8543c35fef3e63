package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vblocks.ai/internal/build/placement"
	"vblocks.ai/internal/catalogs"
	"vblocks.ai/internal/persistence/indexdb"
	"vblocks.ai/internal/tuning"
)

type runtimeIndex interface {
	placement.AuditLogger
	Close() error
	UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error
}

func openRuntimeIndex(dataDir, world string, disableDB bool, logger logrus.FieldLogger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VB_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "vblocks.sqlite"))
	case "d1":
		endpoint := strings.TrimSpace(os.Getenv("VB_INDEX_D1_INGEST_URL"))
		if endpoint == "" {
			return nil, fmt.Errorf("VB_INDEX_BACKEND=d1 but VB_INDEX_D1_INGEST_URL is empty")
		}
		return indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(os.Getenv("VB_INDEX_D1_TOKEN")),
			WorldID:       world,
			BatchSize:     envInt("VB_INDEX_D1_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("VB_INDEX_D1_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported VB_INDEX_BACKEND: %s", backend)
	}
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
