// Package log stores the placement audit trail as hourly zstd-compressed JSONL files.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"vblocks.ai/internal/build/placement"
)

const auditPrefix = "audit"

// AuditLogger writes one line per confirmed create or delete.
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(AuditDir(dataDir), auditPrefix)}
}

func AuditDir(dataDir string) string { return filepath.Join(dataDir, "audit") }

func (l *AuditLogger) WriteAudit(e placement.AuditEntry) error { return l.w.Write(e) }
func (l *AuditLogger) Close() error                            { return l.w.Close() }

// AuditFiles lists the audit files in dir, oldest first.
func AuditFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, auditPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadAudit calls fn for every entry in dir in write order. It stops at the first error
// returned by fn.
func ReadAudit(dir string, fn func(placement.AuditEntry) error) error {
	files, err := AuditFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := readAuditFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func readAuditFile(path string, fn func(placement.AuditEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e placement.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
