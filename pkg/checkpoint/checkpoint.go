package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/models"
)

const (
	// Version is bumped whenever the snapshot layout changes.
	Version = 1

	dirName    = "checkpoints"
	fileSuffix = ".checkpoint.json"
)

// Snapshot is the state of a collection run at the point it failed
type Snapshot struct {
	Series          string            `json:"series"`
	Rule            string            `json:"rule"`
	Languages       []string          `json:"languages,omitempty"`
	Start           time.Time         `json:"start"`
	End             time.Time         `json:"end"`
	MaxItems        int               `json:"max_items"`
	IntervalMinutes int               `json:"interval_minutes"`
	ExpectedCount   int               `json:"expected_intervals"`
	Intervals       []models.Interval `json:"intervals"`
	ErrorType       string            `json:"error_type,omitempty"`
	Error           string            `json:"error,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Version         int               `json:"version"`
}

// NewSnapshot captures the completed intervals of a run that stopped with cause.
func NewSnapshot(series string, spec models.CollectionSpec, intervals []models.Interval, cause error) *Snapshot {
	s := &Snapshot{
		Series:          series,
		Rule:            spec.Rule,
		Languages:       spec.Languages,
		Start:           spec.Start.UTC(),
		End:             spec.End.UTC(),
		MaxItems:        spec.MaxItemsPerInterval,
		IntervalMinutes: spec.IntervalMinutes(),
		ExpectedCount:   spec.IntervalCount(),
		Intervals:       intervals,
		Version:         Version,
	}
	if cause != nil {
		s.Error = cause.Error()
		s.ErrorType = string(errs.TypeOf(cause))
	}
	return s
}

// ItemCount is the number of texts across all completed intervals.
func (s *Snapshot) ItemCount() int {
	n := 0
	for _, iv := range s.Intervals {
		n += len(iv.Items)
	}
	return n
}

// Complete reports whether every expected interval was collected.
func (s *Snapshot) Complete() bool {
	return len(s.Intervals) >= s.ExpectedCount
}

// Manager reads and writes snapshots under one directory
type Manager struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
}

// NewManager creates the checkpoints directory under dataDir.
func NewManager(dataDir string, log logger.Logger) (*Manager, error) {
	if dataDir == "" {
		return nil, errs.Validation("checkpoint data directory is required")
	}
	dir := filepath.Join(dataDir, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		dir:    dir,
		logger: log.WithField("component", "checkpoint"),
		now:    time.Now,
	}, nil
}

// Dir returns the directory snapshots are written to.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the snapshot file for series.
func (m *Manager) Path(series string) string {
	return filepath.Join(m.dir, series+fileSuffix)
}

// Save writes the snapshot atomically and returns its path.
func (m *Manager) Save(s *Snapshot) (string, error) {
	if s == nil || s.Series == "" {
		return "", errs.Validation("snapshot needs a series name")
	}
	if strings.ContainsAny(s.Series, `/\`) {
		return "", errs.Validation("invalid series name %q", s.Series)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}
	if s.Version == 0 {
		s.Version = Version
	}

	path := m.Path(s.Series)
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.InfoWithFields("Partial run saved", map[string]interface{}{
		"series":    s.Series,
		"intervals": len(s.Intervals),
		"expected":  s.ExpectedCount,
		"items":     s.ItemCount(),
		"path":      path,
	})
	return path, nil
}

// Load reads the snapshot for series. It returns nil, nil when none exists.
func (m *Manager) Load(series string) (*Snapshot, error) {
	file, err := os.Open(m.Path(series))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var s Snapshot
	if err := json.NewDecoder(file).Decode(&s); err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: fmt.Sprintf("failed to decode checkpoint: %v", err)}
	}
	if s.Version > Version {
		return nil, errs.Validation("checkpoint %s has version %d, newer than supported %d", series, s.Version, Version)
	}
	return &s, nil
}

// Delete removes the snapshot for series if present.
func (m *Manager) Delete(series string) error {
	if err := os.Remove(m.Path(series)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.DebugWithFields("Checkpoint deleted", map[string]interface{}{"series": series})
	return nil
}

// Exists reports whether a snapshot for series is on disk.
func (m *Manager) Exists(series string) bool {
	_, err := os.Stat(m.Path(series))
	return err == nil
}

// List returns the series names that have a snapshot, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileSuffix))
	}
	sort.Strings(names)
	return names, nil
}
