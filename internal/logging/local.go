package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

// LocalConfig tunes the size-rotating family files.
type LocalConfig struct {
	Dir          string
	MaxSizeBytes int64
	MaxBackups   int
	MinLevel     string
}

// LocalWriter appends one JSON object per line to a file per record family,
// rotating numbered backups when the active file exceeds MaxSizeBytes.
//
// Writes never fail the caller: any I/O error is reported on stderr, the
// last channel that cannot itself be mid-failure, and swallowed.
type LocalWriter struct {
	cfg   LocalConfig
	files map[models.Family]*familyFile
}

// familyFile serializes all writes to one family's file. The mutex also
// covers rotation so a concurrent writer can never interleave a partial line
// with a rename chain.
type familyFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// System records have no dedicated local file; they land in the application
// file so that writer-internal failures remain visible on disk.
var familyFileNames = map[models.Family]string{
	models.FamilyApplication: "application.log",
	models.FamilyError:       "error.log",
	models.FamilyAudit:       "audit.log",
	models.FamilyPerformance: "performance.log",
	models.FamilySystem:      "application.log",
}

// NewLocalWriter creates the log directory if needed and prepares one file
// slot per family. Files are opened lazily on first write.
func NewLocalWriter(cfg LocalConfig) (*LocalWriter, error) {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 10 * 1024 * 1024
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MinLevel == "" {
		cfg.MinLevel = LevelDebug
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", cfg.Dir, err)
	}

	files := make(map[models.Family]*familyFile)
	paths := make(map[string]*familyFile)
	for fam, name := range familyFileNames {
		path := filepath.Join(cfg.Dir, name)
		ff, ok := paths[path]
		if !ok {
			ff = &familyFile{path: path}
			paths[path] = ff
		}
		files[fam] = ff
	}
	return &LocalWriter{cfg: cfg, files: files}, nil
}

// Write appends the record to the family's file. Unknown families fall back
// to the application file. Errors are reported, never returned.
func (w *LocalWriter) Write(rec models.Record, family models.Family) {
	if !ShouldWrite(rec.Level, w.cfg.MinLevel) {
		return
	}
	ff, ok := w.files[family]
	if !ok {
		ff = w.files[models.FamilyApplication]
	}

	line, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] local writer: marshal %s record: %v\n", family, err)
		return
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	if err := ff.ensureOpen(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] local writer: open %s: %v\n", ff.path, err)
		return
	}
	if err := ff.rotateIfNeeded(w.cfg.MaxSizeBytes, w.cfg.MaxBackups); err != nil {
		// Rotation failure is reported but the write still goes to the
		// oversized file; losing the record would be worse. A failed
		// rotation may have closed the active file, so reopen it.
		fmt.Fprintf(os.Stderr, "[ERROR] local writer: rotate %s: %v\n", ff.path, err)
		if err := ff.ensureOpen(); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] local writer: reopen %s: %v\n", ff.path, err)
			return
		}
	}
	if _, err := ff.f.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] local writer: write %s: %v\n", ff.path, err)
	}
}

// Close is a no-op for durability purposes (every write goes straight to the
// OS); it only releases file handles.
func (w *LocalWriter) Close() {
	seen := map[*familyFile]bool{}
	for _, ff := range w.files {
		if seen[ff] {
			continue
		}
		seen[ff] = true
		ff.mu.Lock()
		if ff.f != nil {
			ff.f.Close()
			ff.f = nil
		}
		ff.mu.Unlock()
	}
}

// ensureOpen opens the active file in append mode. Caller holds mu.
func (ff *familyFile) ensureOpen() error {
	if ff.f != nil {
		return nil
	}
	f, err := os.OpenFile(ff.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	ff.f = f
	return nil
}

// rotateIfNeeded shifts the backup chain (.N -> .N+1, oldest dropped) and
// moves the active file to .1 once it exceeds maxSize. Caller holds mu.
func (ff *familyFile) rotateIfNeeded(maxSize int64, maxBackups int) error {
	info, err := ff.f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	if err := ff.f.Close(); err != nil {
		ff.f = nil
		return err
	}
	ff.f = nil

	// Drop the backup that would fall off the end, then shift upward.
	oldest := fmt.Sprintf("%s.%d", ff.path, maxBackups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return err
	}
	for n := maxBackups - 1; n >= 1; n-- {
		from := fmt.Sprintf("%s.%d", ff.path, n)
		to := fmt.Sprintf("%s.%d", ff.path, n+1)
		if err := os.Rename(from, to); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(ff.path, ff.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return ff.ensureOpen()
}
