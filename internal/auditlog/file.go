package auditlog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-gateway/internal/interfaces"
)

// ist is the exchange time zone; daily files roll over at IST midnight.
var ist = time.FixedZone("IST", 19800)

// record is one line of the JSON-lines audit file.
type record struct {
	ID string `json:"id"`
	interfaces.AuditEntry
}

// FileStore appends entries to one JSON-lines file per day under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ interfaces.AuditStore = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("auditlog: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(t time.Time) string {
	return filepath.Join(s.dir, t.In(ist).Format("2006-01-02")+".jsonl")
}

func (s *FileStore) Write(_ context.Context, e interfaces.AuditEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b, err := json.Marshal(record{ID: uuid.NewString(), AuditEntry: e})
	if err != nil {
		return fmt.Errorf("auditlog: marshal %s entry: %w", e.Operation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path(e.Time), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (s *FileStore) Close() error { return nil }

// CompressOlder gzips daily files last modified more than retentionDays
// ago and removes the originals.
func (s *FileStore) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	s.mu.Lock()
	defer s.mu.Unlock()
	return filepath.WalkDir(s.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return fmt.Errorf("auditlog: compress %s: %w", p, err)
		}
		return os.Remove(p)
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
