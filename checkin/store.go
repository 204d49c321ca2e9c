package checkin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/calma/checkin/fileutils"
	"github.com/theimaginaryfoundation/calma/internal/observability"
	"github.com/tidwall/gjson"
)

// ProfileStore loads and saves user profiles keyed by NormalizeName of the user name.
type ProfileStore interface {
	Exists(name string) (bool, error)
	Load(name string) (*UserProfile, error)
	Save(p *UserProfile) error
}

// JSONProfileStore keeps one pretty-printed JSON document per user under a base directory,
// e.g. data/perfis/ana.json.
type JSONProfileStore struct {
	baseDir string
	log     *slog.Logger
}

// NewJSONProfileStore creates baseDir if needed.
func NewJSONProfileStore(baseDir string, logger *slog.Logger) (*JSONProfileStore, error) {
	if baseDir == "" {
		return nil, errors.New("NewJSONProfileStore: baseDir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: baseDir, Err: err}
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &JSONProfileStore{baseDir: baseDir, log: logger}, nil
}

// PathFor is the file a user name resolves to.
func (s *JSONProfileStore) PathFor(name string) string {
	return filepath.Join(s.baseDir, NormalizeName(name)+".json")
}

func (s *JSONProfileStore) Exists(name string) (bool, error) {
	p := s.PathFor(name)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &StorageError{Op: "stat", Path: p, Err: err}
	}
	return true, nil
}

// Load returns the stored profile for name. When none exists a fresh profile is created, saved
// and returned. Missing fields default and unknown fields are ignored.
func (s *JSONProfileStore) Load(name string) (*UserProfile, error) {
	path := s.PathFor(name)
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &StorageError{Op: "read", Path: path, Err: err}
		}
		p := NewUserProfile(name)
		if err := s.Save(p); err != nil {
			return nil, err
		}
		s.log.Info("profile created", "user", p.Name, "path", path)
		return p, nil
	}

	var p UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, &StorageError{Op: "decode", Path: path, Err: err}
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = NewUserProfile(name).Name
	}

	if !gjson.GetBytes(b, "intensidades").Exists() {
		// Profiles written before the intensity ledger existed keep a one-time backup.
		backup := path + ".bak"
		copied, err := fileutils.CopyFileIfExists(path, backup, false)
		if err != nil {
			return nil, &StorageError{Op: "backup", Path: backup, Err: err}
		}
		if copied {
			s.log.Info("legacy profile backed up", "user", p.Name, "backup", backup)
		}
	}

	Migrate(&p)
	return &p, nil
}

// Save overwrites the profile file atomically. The path comes from the normalized profile
// name, so name variants always converge on one file.
func (s *JSONProfileStore) Save(p *UserProfile) error {
	if p == nil {
		return errors.New("Save: profile is nil")
	}
	path := s.PathFor(p.Name)
	if err := fileutils.WriteJSONFileAtomic(path, p, true); err != nil {
		return &StorageError{Op: "write", Path: path, Err: fmt.Errorf("Save: %w", err)}
	}
	return nil
}
