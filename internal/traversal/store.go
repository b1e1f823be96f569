package traversal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"replay-agent/internal/entity"
	"replay-agent/internal/replay"
)

const correctedSuffix = "_corrected"

// Store reads and writes traversal records on disk. Records are plain
// JSON files; a healed replay writes its corrected twin next to the
// original instead of overwriting it.
type Store struct {
	log *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{log: log}
}

// Load reads and validates the traversal at path. A file without an
// actions collection, or one failing structural validation, is a
// ConfigurationError.
func (s *Store) Load(path string) (*entity.Traversal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &replay.ConfigurationError{Err: fmt.Errorf("reading traversal %s: %w", path, err)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &replay.ConfigurationError{Err: fmt.Errorf("parsing traversal %s: %w", path, err)}
	}
	if _, ok := raw["actions"]; !ok {
		return nil, &replay.ConfigurationError{Err: fmt.Errorf("traversal %s has no actions collection", path)}
	}

	var t entity.Traversal
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, &replay.ConfigurationError{Err: fmt.Errorf("decoding traversal %s: %w", path, err)}
	}

	// Decision IDs live in the map keys on disk.
	for id, d := range t.Decisions {
		d.ID = id
		t.Decisions[id] = d
	}

	if err := t.Validate(); err != nil {
		return nil, &replay.ConfigurationError{Err: fmt.Errorf("invalid traversal %s: %w", path, err)}
	}

	// Old recordings may omit the browser profile.
	if t.BrowserConfig.ViewportWidth <= 0 || t.BrowserConfig.ViewportHeight <= 0 {
		def := entity.DefaultBrowserConfig()
		t.BrowserConfig.ViewportWidth = def.ViewportWidth
		t.BrowserConfig.ViewportHeight = def.ViewportHeight
	}

	s.log.Debug("traversal loaded", "path", path, "actions", len(t.Actions), "decisions", len(t.Decisions))
	return &t, nil
}

// Save writes the traversal to path, pretty-printed the same way the
// recorder writes originals.
func (s *Store) Save(path string, t *entity.Traversal) error {
	data, err := json.MarshalIndent(t, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding traversal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing traversal %s: %w", path, err)
	}
	s.log.Info("traversal saved", "path", path, "actions", len(t.Actions))
	return nil
}

// Latest returns the most recently modified traversal file in dir,
// skipping corrected outputs so a healed run never replays its own
// correction by accident.
func (s *Store) Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &replay.ConfigurationError{Err: fmt.Errorf("reading traversal dir %s: %w", dir, err)}
	}

	var best string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if strings.HasSuffix(strings.TrimSuffix(e.Name(), ".json"), correctedSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best = e.Name()
			bestMod = mod
		}
	}
	if best == "" {
		return "", &replay.ConfigurationError{Err: fmt.Errorf("no traversal files in %s", dir)}
	}
	return filepath.Join(dir, best), nil
}

// CorrectedPath derives the output path for a healed traversal:
// run.json becomes run_corrected.json.
func CorrectedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + correctedSuffix + ext
}
