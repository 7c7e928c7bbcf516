// Package history keeps a ledger of graded runs in a SQLite database under the output
// directory and rotates it by age and count.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ajranjith/uiaudit/internal/logging"
	"github.com/ajranjith/uiaudit/internal/model"
)

const DefaultFileName = "history.db"

// Run is one recorded audit.
type Run struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
	Command        string    `json:"command"`
	Root           string    `json:"root"`
	Commit         string    `json:"commit"`
	Files          int       `json:"files"`
	Issues         int       `json:"issues"`
	Critical       int       `json:"critical"`
	Overall        int       `json:"overall"`
	Grade          string    `json:"grade"`
	Status         string    `json:"status"`
	CategoryScores string    `json:"categoryScores"`
}

// Scores decodes the stored category scores.
func (r Run) Scores() map[string]int {
	out := map[string]int{}
	_ = json.Unmarshal([]byte(r.CategoryScores), &out)
	return out
}

type Options struct {
	Dir          string
	FileName     string
	MaxSnapshots int
	KeepDays     int
	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string
	Now      func() time.Time
}

type Store struct {
	db   *gorm.DB
	opts Options
	log  *slog.Logger
}

// Open creates the database file if needed and migrates the schema.
func Open(opts Options, log *slog.Logger) (*Store, error) {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir %s: %w", opts.Dir, err)
	}
	var level gormlogger.LogLevel
	switch strings.ToLower(opts.LogLevel) {
	case "error":
		level = gormlogger.Error
	case "warn":
		level = gormlogger.Warn
	case "info":
		level = gormlogger.Info
	default:
		level = gormlogger.Silent
	}
	path := filepath.Join(opts.Dir, opts.FileName)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Run{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db, opts: opts, log: logging.OrDiscard(log)}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores run and then rotates the ledger.
func (s *Store) Record(run Run) (Run, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.opts.Now().UTC()
	}
	if err := s.db.Create(&run).Error; err != nil {
		return run, fmt.Errorf("record run: %w", err)
	}
	if removed, err := s.Rotate(); err != nil {
		s.log.Warn("history rotation failed", "err", err)
	} else if removed > 0 {
		s.log.Debug("history rotated", "removed", removed)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less returns all.
func (s *Store) List(limit int) ([]Run, error) {
	var runs []Run
	q := s.db.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run, if any.
func (s *Store) Latest() (Run, bool, error) {
	runs, err := s.List(1)
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	return runs[0], true, nil
}

// Rotate deletes runs older than KeepDays and then the oldest runs beyond MaxSnapshots.
// Zero disables the respective limit.
func (s *Store) Rotate() (int64, error) {
	var removed int64
	if s.opts.KeepDays > 0 {
		cutoff := s.opts.Now().UTC().AddDate(0, 0, -s.opts.KeepDays)
		res := s.db.Where("created_at < ?", cutoff).Delete(&Run{})
		if res.Error != nil {
			return removed, res.Error
		}
		removed += res.RowsAffected
	}
	if s.opts.MaxSnapshots > 0 {
		var count int64
		if err := s.db.Model(&Run{}).Count(&count).Error; err != nil {
			return removed, err
		}
		if excess := int(count) - s.opts.MaxSnapshots; excess > 0 {
			var ids []uint
			if err := s.db.Model(&Run{}).Order("created_at ASC").Order("id ASC").Limit(excess).Pluck("id", &ids).Error; err != nil {
				return removed, err
			}
			res := s.db.Delete(&Run{}, ids)
			if res.Error != nil {
				return removed, res.Error
			}
			removed += res.RowsAffected
		}
	}
	return removed, nil
}

// FromReport builds a run from a scan and its grade. Status is PASS when the overall score
// reaches threshold.
func FromReport(command, root string, res *model.ScanResult, rep *model.GradeReport, threshold int) Run {
	scores, _ := json.Marshal(rep.CategoryScores)
	status := "PASS"
	if rep.Overall < threshold {
		status = "FAIL"
	}
	return Run{
		CreatedAt:      rep.GeneratedAt,
		Command:        command,
		Root:           root,
		Commit:         GitShortSHA(root),
		Files:          res.Summary.TotalFiles,
		Issues:         rep.TotalIssues,
		Critical:       rep.CriticalIssues,
		Overall:        rep.Overall,
		Grade:          rep.Grade,
		Status:         status,
		CategoryScores: string(scores),
	}
}

// GitShortSHA returns the abbreviated HEAD commit of root, or "nogit".
func GitShortSHA(root string) string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "nogit"
	}
	return strings.TrimSpace(string(out))
}
