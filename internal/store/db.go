package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&RumorCheck{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRumorCheck inserts an analysis record. SQLite allows one writer, so
// writes are serialized.
func (d *Database) SaveRumorCheck(check *RumorCheck) error {
	if check == nil {
		return errors.New("rumor check is nil")
	}
	if strings.TrimSpace(check.ID) == "" {
		return errors.New("rumor check id required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(check).Error
}

// GetRumorCheck loads a single analysis by id.
func (d *Database) GetRumorCheck(id string) (*RumorCheck, error) {
	var check RumorCheck
	err := d.gorm.Where("id = ?", strings.TrimSpace(id)).First(&check).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// ListRumorChecks returns a page of analyses, newest first, plus the total
// number matching the filter.
func (d *Database) ListRumorChecks(q RumorCheckQuery) ([]RumorCheck, int64, error) {
	query := d.gorm.Model(&RumorCheck{})
	if c := strings.TrimSpace(q.Classification); c != "" {
		query = query.Where("classification = ?", c)
	}
	if e := strings.TrimSpace(q.Engine); e != "" {
		query = query.Where("engine = ?", e)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var checks []RumorCheck
	if err := query.Order("evaluated_at DESC").Order("id").Limit(limit).Offset(offset).Find(&checks).Error; err != nil {
		return nil, 0, err
	}
	return checks, total, nil
}

// ClassificationCounts tallies stored analyses per classification.
func (d *Database) ClassificationCounts() (map[string]int64, error) {
	var rows []struct {
		Classification string
		Total          int64
	}
	if err := d.gorm.Model(&RumorCheck{}).
		Select("classification, COUNT(*) AS total").
		Group("classification").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Classification] = row.Total
	}
	return counts, nil
}
