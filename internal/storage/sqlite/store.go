// Package sqlite implements crawler.CaseStore on an embedded SQLite
// database through gorm. The database allows one writer at a time, so every
// commit runs under the shared lock.Writer.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/lock"
)

// Config controls the database connection.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Store persists cases, documents and images.
type Store struct {
	db     *gorm.DB
	writes *lock.Writer
	logger *zap.Logger
}

// Open connects to the database at cfg.Path, creating its directory, and
// migrates the schema.
func Open(cfg Config, writes *lock.Writer, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	if writes == nil {
		return nil, errors.New("sqlite: writer lock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=1",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, writes: writes, logger: logger.Named("sqlite")}
	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.writes.Do(func() error {
		return s.db.AutoMigrate(
			&crawler.Case{},
			&crawler.Document{},
			&crawler.Image{},
		)
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite: get sql db: %w", err)
	}
	return sqlDB.Close()
}

// FindCaseByURL returns the case stored under url or crawler.ErrNotFound.
func (s *Store) FindCaseByURL(ctx context.Context, url string) (*crawler.Case, error) {
	var c crawler.Case
	err := s.db.WithContext(ctx).Where("url = ?", url).Take(&c).Error
	if err != nil {
		return nil, classify("find case", err)
	}
	return &c, nil
}

// GetCase returns the case with the given id or crawler.ErrNotFound.
func (s *Store) GetCase(ctx context.Context, id uint) (*crawler.Case, error) {
	var c crawler.Case
	if err := s.db.WithContext(ctx).Take(&c, id).Error; err != nil {
		return nil, classify("get case", err)
	}
	return &c, nil
}

// CreateCase inserts c. A concurrent insert of the same URL surfaces as
// crawler.ErrPersistenceConflict.
func (s *Store) CreateCase(ctx context.Context, c *crawler.Case) error {
	return s.write(ctx, "create case", func(tx *gorm.DB) error {
		return tx.Create(c).Error
	})
}

// SaveCase writes every column of c.
func (s *Store) SaveCase(ctx context.Context, c *crawler.Case) error {
	return s.write(ctx, "save case", func(tx *gorm.DB) error {
		return tx.Save(c).Error
	})
}

// DeleteCase removes a case; its documents and images cascade.
func (s *Store) DeleteCase(ctx context.Context, id uint) error {
	return s.write(ctx, "delete case", func(tx *gorm.DB) error {
		res := tx.Delete(&crawler.Case{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AddDocument attaches a document row to its case.
func (s *Store) AddDocument(ctx context.Context, doc *crawler.Document) error {
	return s.write(ctx, "add document", func(tx *gorm.DB) error {
		return tx.Omit("Case").Create(doc).Error
	})
}

// AddImage attaches an image row to its case.
func (s *Store) AddImage(ctx context.Context, img *crawler.Image) error {
	return s.write(ctx, "add image", func(tx *gorm.DB) error {
		return tx.Omit("Case").Create(img).Error
	})
}

// ListCases returns one page of cases, newest first, optionally filtered by
// a case-insensitive match on title, case number, court or citation, along
// with the total number of matches.
func (s *Store) ListCases(ctx context.Context, query string, limit, offset int) ([]crawler.Case, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := s.db.WithContext(ctx).Model(&crawler.Case{})
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where(
			"LOWER(title) LIKE ? OR LOWER(case_number) LIKE ? OR LOWER(court) LIKE ? OR LOWER(citation) LIKE ?",
			like, like, like, like,
		)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify("count cases", err)
	}
	var cases []crawler.Case
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&cases).Error; err != nil {
		return nil, 0, classify("list cases", err)
	}
	return cases, total, nil
}

// ListDocuments returns the documents attached to caseID in insertion order.
func (s *Store) ListDocuments(ctx context.Context, caseID uint) ([]crawler.Document, error) {
	var docs []crawler.Document
	if err := s.db.WithContext(ctx).Where("case_id = ?", caseID).Order("id").Find(&docs).Error; err != nil {
		return nil, classify("list documents", err)
	}
	return docs, nil
}

// ListImages returns the images attached to caseID in insertion order.
func (s *Store) ListImages(ctx context.Context, caseID uint) ([]crawler.Image, error) {
	var imgs []crawler.Image
	if err := s.db.WithContext(ctx).Where("case_id = ?", caseID).Order("id").Find(&imgs).Error; err != nil {
		return nil, classify("list images", err)
	}
	return imgs, nil
}

func (s *Store) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.writes.Do(func() error {
		return s.db.WithContext(ctx).Transaction(fn)
	})
	if err != nil {
		classified := classify(op, err)
		s.logger.Debug("write failed", zap.String("op", op), zap.Error(classified))
		return classified
	}
	return nil
}

// classify maps driver errors onto the crawler error taxonomy.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, crawler.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, crawler.ErrPersistenceConflict, err)
	case isBusy(err):
		return fmt.Errorf("%s: %w: %v", op, crawler.ErrPersistenceUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
