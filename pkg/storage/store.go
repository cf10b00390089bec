package storage

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
)

// IndexFile is the name of the sqlite index inside the store directory.
const IndexFile = "index.db"

// Series is one loaded series. Rows are ordered newest interval first.
type Series struct {
	Identity     Identity
	Path         string
	Rows         [][]string
	TotalMinutes int
}

// Floats parses every cell as a float64.
func (s *Series) Floats() ([][]float64, error) {
	out := make([][]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = make([]float64, 0, len(row))
		for _, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, &errs.Error{
					Type:    errs.ErrorTypeParsing,
					Message: fmt.Sprintf("%s row %d: %v", filepath.Base(s.Path), i+1, err),
				}
			}
			out[i] = append(out[i], v)
		}
	}
	return out, nil
}

// RunData holds the four series of one stored run.
type RunData struct {
	Text            *Series
	TextSample      *Series
	Sentiment       *Series
	SentimentSample *Series
	Start           time.Time
	End             time.Time
	TotalMinutes    int
}

// Store manages series files and their index
type Store struct {
	dir    string
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// Open opens or creates the store in dir. A fresh index imports any series
// files already present in dir.
func Open(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := openIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:    dir,
		db:     db,
		logger: log.WithField("component", "storage"),
		now:    time.Now,
	}
	if err := s.importLegacy(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the index
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

// importLegacy indexes series files when the index is empty.
func (s *Store) importLegacy() error {
	n, err := countSeries(s.db)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading store dir: %w", err)
	}

	imported := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		id, archived, err := ParseFilename(e.Name())
		if err != nil {
			s.logger.WithError(err).WithField("file", e.Name()).Debug("Skipping unrecognized file")
			continue
		}
		if err := insertEntry(s.db, id, e.Name(), archived, s.now()); err != nil {
			return err
		}
		imported++
	}

	if imported > 0 {
		s.logger.WithField("files", imported).Info("Imported existing series into index")
	}
	return nil
}

// Create registers a new empty series. An active series with the same
// kind, sample flag, cap and interval must be archived first.
func (s *Store) Create(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAll([]Identity{id})
}

// StartRun archives the run stored for (max, interval) and registers the four
// empty series of a new run covering start to end. Every new file name is
// checked before anything is archived or created.
func (s *Store) StartRun(start, end time.Time, maxItems, interval int) (int, error) {
	ids := make([]Identity, len(runKeys))
	for i, k := range runKeys {
		ids[i] = NewIdentity(k.kind, k.sample, start, end, maxItems, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := findActive(s.db, "", false, maxItems, interval)
	if err != nil {
		return 0, err
	}
	replaced := make(map[string]bool, len(active))
	for _, e := range active {
		replaced[e.path] = true
	}
	if err := s.checkNew(ids, replaced); err != nil {
		return 0, err
	}

	archived, err := s.archive(maxItems, interval)
	if err != nil {
		return 0, err
	}
	return archived, s.createAll(ids)
}

// checkNew fails when an identity is invalid or its file already exists on
// disk under a name not listed in replaced.
func (s *Store) checkNew(ids []Identity, replaced map[string]bool) error {
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return err
		}
		name := id.Filename()
		if replaced[name] {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return errs.Identity("series file %s exists but is not indexed", name)
		}
	}
	return nil
}

// createAll creates every series or none of them.
func (s *Store) createAll(ids []Identity) error {
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return err
		}
		existing, err := findActive(s.db, id.Kind, id.Sample, id.MaxItems, id.IntervalMinutes)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errs.Identity("series %s already exists as %s; archive it first", id, existing[0].path)
		}
	}
	if err := s.checkNew(ids, nil); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var created []string
	cleanup := func() {
		for _, path := range created {
			os.Remove(path)
		}
	}
	for _, id := range ids {
		name := id.Filename()
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			cleanup()
			if errors.Is(err, fs.ErrExist) {
				return errs.Identity("series file %s exists but is not indexed", name)
			}
			return fmt.Errorf("creating series file: %w", err)
		}
		created = append(created, path)
		if err := f.Close(); err != nil {
			cleanup()
			return fmt.Errorf("closing series file: %w", err)
		}
		if err := insertEntry(tx, id, name, false, s.now()); err != nil {
			cleanup()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		cleanup()
		return fmt.Errorf("committing new series: %w", err)
	}

	for _, id := range ids {
		s.logger.WithField("series", id.String()).Debug("Series created")
	}
	return nil
}

// Lookup returns the single active identity for the key.
func (s *Store) Lookup(kind Kind, sample bool, maxItems, interval int) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.resolve(kind, sample, maxItems, interval)
	if err != nil {
		return Identity{}, err
	}
	return e.id, nil
}

func (s *Store) resolve(kind Kind, sample bool, maxItems, interval int) (entry, error) {
	entries, err := findActive(s.db, kind, sample, maxItems, interval)
	if err != nil {
		return entry{}, err
	}
	switch len(entries) {
	case 0:
		return entry{}, errs.Identity("no stored %s series (sample=%t) for %d items per %d minutes",
			kind, sample, maxItems, interval)
	case 1:
		return entries[0], nil
	default:
		return entry{}, errs.Identity("%d stored %s series (sample=%t) match %d items per %d minutes",
			len(entries), kind, sample, maxItems, interval)
	}
}

// Save appends rows to the series named by id ending at priorEnd. When newEnd
// differs, the file is then renamed to the new identity and the index updated
// in the same transaction. Save never creates a series.
func (s *Store) Save(id Identity, priorEnd, newEnd time.Time, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAll([]saveTarget{{prior: id.WithEnd(priorEnd), rows: rows}}, newEnd)
}

// RunRows holds the rows appended to each series of a run, newest interval
// first.
type RunRows struct {
	Text            [][]string
	TextSample      [][]string
	Sentiment       [][]string
	SentimentSample [][]string
}

func (r RunRows) forKey(k runKey) [][]string {
	switch {
	case k.kind == KindText && !k.sample:
		return r.Text
	case k.kind == KindText:
		return r.TextSample
	case !k.sample:
		return r.Sentiment
	default:
		return r.SentimentSample
	}
}

type runKey struct {
	kind   Kind
	sample bool
}

var runKeys = []runKey{
	{KindText, false},
	{KindText, true},
	{KindSentiment, false},
	{KindSentiment, true},
}

// SaveRun appends rows to the four series of the run stored for
// (max, interval) and moves all of them to newEnd. Either every series is
// extended or none is.
func (s *Store) SaveRun(maxItems, interval int, newEnd time.Time, rows RunRows) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]saveTarget, len(runKeys))
	for i, k := range runKeys {
		e, err := s.resolve(k.kind, k.sample, maxItems, interval)
		if err != nil {
			return err
		}
		ref := targets[0].prior
		if i > 0 && (!e.id.StartDate.Equal(ref.StartDate) || !e.id.EndDate.Equal(ref.EndDate)) {
			return errs.Identity("stored series disagree on dates: %s and %s", ref, e.id)
		}
		targets[i] = saveTarget{prior: e.id, rows: rows.forKey(k)}
	}
	return s.saveAll(targets, newEnd)
}

type saveTarget struct {
	prior Identity
	rows  [][]string
}

// saveAll checks every target, appends to each file and renames them. A
// failure at any step truncates the files back and restores their names.
func (s *Store) saveAll(targets []saveTarget, newEnd time.Time) error {
	entries := make([]entry, len(targets))
	for i, t := range targets {
		if err := t.prior.Validate(); err != nil {
			return err
		}
		next := t.prior.WithEnd(newEnd)
		if err := next.Validate(); err != nil {
			return err
		}

		e, err := s.resolve(t.prior.Kind, t.prior.Sample, t.prior.MaxItems, t.prior.IntervalMinutes)
		if err != nil {
			return err
		}
		if !e.id.StartDate.Equal(t.prior.StartDate) || !e.id.EndDate.Equal(t.prior.EndDate) {
			return errs.Identity("no stored series %s; the active one is %s", t.prior, e.id)
		}
		if !next.EndDate.Equal(e.id.EndDate) {
			if _, err := os.Stat(filepath.Join(s.dir, next.Filename())); err == nil {
				return errs.Identity("cannot extend %s: %s already exists", e.id, next.Filename())
			}
		}
		entries[i] = e
	}

	sizes := make([]int64, 0, len(targets))
	truncate := func() {
		for i, size := range sizes {
			path := filepath.Join(s.dir, entries[i].path)
			if err := os.Truncate(path, size); err != nil {
				s.logger.WithError(err).WithField("file", entries[i].path).Error("Failed to undo appended rows")
			}
		}
	}
	for i, t := range targets {
		path := filepath.Join(s.dir, entries[i].path)
		info, err := os.Stat(path)
		if err != nil {
			truncate()
			if errors.Is(err, fs.ErrNotExist) {
				return errs.Identity("indexed series file %s is missing", entries[i].path)
			}
			return fmt.Errorf("reading series file: %w", err)
		}
		sizes = append(sizes, info.Size())
		if err := appendRows(path, t.rows); err != nil {
			truncate()
			return err
		}
	}

	if err := s.renameAll(entries, CivilDate(newEnd)); err != nil {
		truncate()
		return err
	}
	return nil
}

// renameAll moves every entry to its identity ending at newEnd inside one
// index transaction. Files already moved are moved back on failure.
func (s *Store) renameAll(entries []entry, newEnd time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	type move struct{ from, to string }
	var moved []move
	undo := func() {
		for i := len(moved) - 1; i >= 0; i-- {
			if err := os.Rename(moved[i].to, moved[i].from); err != nil {
				s.logger.WithError(err).Error("Failed to restore series file name")
			}
		}
	}

	for _, e := range entries {
		next := e.id.WithEnd(newEnd)
		if next.EndDate.Equal(e.id.EndDate) {
			continue
		}
		newName := next.Filename()
		oldPath := filepath.Join(s.dir, e.path)
		newPath := filepath.Join(s.dir, newName)

		if err := updateEntryEnd(tx, e.rowID, next, newName, s.now()); err != nil {
			undo()
			return err
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			undo()
			return fmt.Errorf("renaming series file: %w", err)
		}
		moved = append(moved, move{oldPath, newPath})
	}
	if len(moved) == 0 {
		return nil
	}
	if err := tx.Commit(); err != nil {
		undo()
		return fmt.Errorf("committing series rename: %w", err)
	}

	for _, e := range entries {
		s.logger.InfoWithFields("Series extended", map[string]interface{}{
			"from": e.id.String(),
			"to":   e.id.WithEnd(newEnd).String(),
		})
	}
	return nil
}

// Load reads the single active series for the key.
func (s *Store) Load(kind Kind, sample bool, maxItems, interval int) (*Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(kind, sample, maxItems, interval)
}

func (s *Store) load(kind Kind, sample bool, maxItems, interval int) (*Series, error) {
	e, err := s.resolve(kind, sample, maxItems, interval)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, e.path)
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return &Series{
		Identity:     e.id,
		Path:         path,
		Rows:         rows,
		TotalMinutes: e.id.TotalMinutes(),
	}, nil
}

// LoadRun loads the four series stored for (max, interval) and checks they
// cover the same dates.
func (s *Store) LoadRun(maxItems, interval int) (*RunData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run RunData
	targets := []struct {
		kind   Kind
		sample bool
		dst    **Series
	}{
		{KindText, false, &run.Text},
		{KindText, true, &run.TextSample},
		{KindSentiment, false, &run.Sentiment},
		{KindSentiment, true, &run.SentimentSample},
	}
	for _, t := range targets {
		series, err := s.load(t.kind, t.sample, maxItems, interval)
		if err != nil {
			return nil, err
		}
		*t.dst = series
	}

	ref := run.Text.Identity
	for _, t := range targets {
		id := (*t.dst).Identity
		if !id.StartDate.Equal(ref.StartDate) || !id.EndDate.Equal(ref.EndDate) {
			return nil, errs.Identity("stored series disagree on dates: %s and %s", ref, id)
		}
	}

	run.Start = ref.StartDate
	run.End = ref.EndDate
	run.TotalMinutes = ref.TotalMinutes()
	return &run, nil
}

// Archive renames every active series for (max, interval) to archived_<name>,
// replacing any earlier archive of the same name. It returns how many series
// were archived.
func (s *Store) Archive(maxItems, interval int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archive(maxItems, interval)
}

func (s *Store) archive(maxItems, interval int) (int, error) {
	entries, err := findActive(s.db, "", false, maxItems, interval)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, e := range entries {
		archivedName := archivedPrefix + e.path
		oldPath := filepath.Join(s.dir, e.path)
		newPath := filepath.Join(s.dir, archivedName)

		if err := os.Remove(newPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("removing previous archive %s: %w", archivedName, err)
		}
		if err := os.Rename(oldPath, newPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("archiving %s: %w", e.path, err)
		}
		if err := markArchived(tx, e.rowID, archivedName, s.now()); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing archive: %w", err)
	}

	s.logger.InfoWithFields("Series archived", map[string]interface{}{
		"count":            len(entries),
		"max_items":        maxItems,
		"interval_minutes": interval,
	})
	return len(entries), nil
}

// RecordRun stores run provenance and returns its id.
func (s *Store) RecordRun(r RunRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRun(s.db, r)
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listRuns(s.db, limit)
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// appendRows writes rows to the end of path and syncs it. Line breaks inside
// cells are flattened so every interval stays on one line.
func appendRows(path string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening series file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	for _, row := range rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = lineBreaks.Replace(cell)
		}
		// A lone empty cell would be written as a blank line, which reads
		// back as an interval with no items.
		if len(record) == 1 && record[0] == "" {
			w.Flush()
			if _, err := bw.WriteString(`""` + "\n"); err != nil {
				return fmt.Errorf("writing series row: %w", err)
			}
			continue
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing series row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing series rows: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing series rows: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing series file: %w", err)
	}
	return f.Close()
}

// readRows reads one row per line. A blank line is an interval with no items
// and a line holding only "" is an interval with one empty text.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Identity("indexed series file %s is missing", filepath.Base(path))
		}
		return nil, fmt.Errorf("opening series file: %w", err)
	}
	defer f.Close()

	rows := [][]string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if text == "" {
			rows = append(rows, []string{})
			continue
		}
		record, err := csv.NewReader(strings.NewReader(text)).Read()
		if err != nil {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeParsing,
				Message: fmt.Sprintf("%s line %d: %v", filepath.Base(path), line, err),
			}
		}
		rows = append(rows, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading series file: %w", err)
	}
	return rows, nil
}

// FormatFloats renders score rows for Save.
func FormatFloats(rows [][]float64) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return out
}
