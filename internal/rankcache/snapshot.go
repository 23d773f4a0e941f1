package rankcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/telemetry"
)

const report_snapshot_skip = "snapshot.skip-entry"

// SnapshotStore reads and writes the whole cache at once.
type SnapshotStore interface {
	Read(ctx context.Context) (map[string]Entry, error)
	Write(ctx context.Context, entries map[string]Entry) error
}

// FileStore keeps the snapshot in a json file. Keys that are not player keys, like the
// list and loss messages older versions of the bot cached in the same file, are ignored.
type FileStore struct {
	path string
	tel  telemetry.API
}

func NewFileStore(path string, tel telemetry.API) FileStore {
	assert.NotNil(tel)
	return FileStore{path: path, tel: telemetry.NewScopedAPI("rankcache", tel)}
}

func (s FileStore) Path() string {
	return s.path
}

// Read returns an empty snapshot if the file does not exist yet.
func (s FileStore) Read(ctx context.Context) (map[string]Entry, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache snapshot: %w", err)
	}
	if len(raw) == 0 {
		return map[string]Entry{}, nil
	}

	values := map[string]json.RawMessage{}
	err = json.Unmarshal(raw, &values)
	if err != nil {
		return nil, fmt.Errorf("decode cache snapshot %s: %w", s.path, err)
	}

	entries := make(map[string]Entry, len(values))
	for key, value := range values {
		if _, ok := ParseKey(key); !ok {
			continue
		}
		var entry Entry
		err = json.Unmarshal(value, &entry)
		if err != nil {
			s.tel.ReportWarning(report_snapshot_skip, s.path, key, err)
			continue
		}
		entries[key] = entry
	}
	return entries, nil
}

// Write replaces the file atomically, a crash mid-write leaves the previous snapshot intact.
func (s FileStore) Write(ctx context.Context, entries map[string]Entry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(raw)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	return nil
}

// MemoryStore is a SnapshotStore that never touches the disk.
type MemoryStore struct {
	mutex   sync.Mutex
	entries map[string]Entry
	writes  int
}

func (s *MemoryStore) Read(ctx context.Context) (map[string]Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return copyEntries(s.entries), nil
}

func (s *MemoryStore) Write(ctx context.Context, entries map[string]Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = copyEntries(entries)
	s.writes++
	return nil
}

// Writes returns the amount of snapshots written so far.
func (s *MemoryStore) Writes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writes
}

func copyEntries(entries map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return out
}
