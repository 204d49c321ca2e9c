package checkin

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theimaginaryfoundation/calma/checkin/fileutils"
)

// HistoryRecord is one completed session.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	State     string    `json:"state"`
	Intensity int       `json:"intensity"`
	Message   string    `json:"message"`
}

// NewHistoryRecord stamps a record with a fresh random id.
func NewHistoryRecord(at time.Time, user, state string, intensity int, message string) HistoryRecord {
	return HistoryRecord{
		ID:        uuid.NewString(),
		Timestamp: at,
		User:      user,
		State:     state,
		Intensity: intensity,
		Message:   message,
	}
}

// HistoryLog is an append-only session log. LastN returns records oldest first, most recent
// last; n <= 0 returns everything.
type HistoryLog interface {
	AppendRecord(r HistoryRecord) error
	LastN(n int) ([]HistoryRecord, error)
}

// MemoryHistory is an in-process HistoryLog. It is NOT persistent. When capacity > 0 only the
// newest capacity records are kept.
type MemoryHistory struct {
	mu       sync.RWMutex
	records  []HistoryRecord
	capacity int
}

func NewMemoryHistory(capacity int) *MemoryHistory {
	return &MemoryHistory{capacity: capacity}
}

func (h *MemoryHistory) AppendRecord(r HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r)
	if h.capacity > 0 && len(h.records) > h.capacity {
		h.records = append([]HistoryRecord(nil), h.records[len(h.records)-h.capacity:]...)
	}
	return nil
}

func (h *MemoryHistory) LastN(n int) ([]HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return tail(h.records, n), nil
}

// JSONLHistory appends one JSON object per line to a file.
type JSONLHistory struct {
	path string
}

func NewJSONLHistory(path string) (*JSONLHistory, error) {
	if path == "" {
		return nil, errors.New("NewJSONLHistory: path is empty")
	}
	return &JSONLHistory{path: path}, nil
}

// NewUserHistory places a user's log at dir/<normalized-name>.jsonl.
func NewUserHistory(dir, user string) (*JSONLHistory, error) {
	if dir == "" {
		return nil, errors.New("NewUserHistory: dir is empty")
	}
	return NewJSONLHistory(filepath.Join(dir, NormalizeName(user)+".jsonl"))
}

func (h *JSONLHistory) Path() string {
	return h.path
}

func (h *JSONLHistory) AppendRecord(r HistoryRecord) error {
	if err := fileutils.AppendJSONLine(h.path, r); err != nil {
		return &StorageError{Op: "append", Path: h.path, Err: err}
	}
	return nil
}

func (h *JSONLHistory) LastN(n int) ([]HistoryRecord, error) {
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []HistoryRecord{}, nil
		}
		return nil, &StorageError{Op: "open", Path: h.path, Err: err}
	}
	defer f.Close()

	var out []HistoryRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var r HistoryRecord
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, &StorageError{Op: "decode", Path: h.path, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		out = append(out, r)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &StorageError{Op: "read", Path: h.path, Err: err}
	}
	if out == nil {
		out = []HistoryRecord{}
	}
	return out, nil
}

func tail(records []HistoryRecord, n int) []HistoryRecord {
	if n <= 0 || n > len(records) {
		n = len(records)
	}
	out := make([]HistoryRecord, n)
	copy(out, records[len(records)-n:])
	return out
}
