package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/energex-outages-etl/internal/domain"
)

// Store appends rows to SQLite tables, creating tables and columns on first
// use. Each key set gets a unique index; saving a row whose key already
// exists replaces the stored values (last write wins). NULL keys never
// collide.
// It implements pipeline.Store.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger

	mu      sync.Mutex
	columns map[string]map[string]bool // table -> known columns
}

// Open opens (or creates) the SQLite database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return New(db, logger), nil
}

// New wraps an existing gorm connection.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		logger:  logger,
		columns: make(map[string]map[string]bool),
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts row into table keyed on keys.
func (s *Store) Save(ctx context.Context, table string, keys []string, row domain.Row) error {
	if table == "" {
		return errors.New("sqlite save: table name is required")
	}
	if len(row) == 0 {
		return fmt.Errorf("sqlite save %s: empty row", table)
	}

	tx := s.db.WithContext(ctx)
	if err := s.ensureSchema(tx, table, keys, row); err != nil {
		return fmt.Errorf("sqlite schema %s: %w", table, err)
	}

	insert := tx.Table(table)
	if len(keys) > 0 {
		onConflict := clause.OnConflict{Columns: clauseColumns(keys)}
		if updates := nonKeyColumns(keys, row); len(updates) > 0 {
			onConflict.DoUpdates = clause.AssignmentColumns(updates)
		} else {
			onConflict.DoNothing = true
		}
		insert = insert.Clauses(onConflict)
	}

	if err := insert.Create(row.Map()).Error; err != nil {
		return fmt.Errorf("sqlite insert %s: %w", table, err)
	}
	return nil
}

// ensureSchema creates the table and key index on first use and adds any
// column of row the table does not have yet.
func (s *Store) ensureSchema(tx *gorm.DB, table string, keys []string, row domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known, ok := s.columns[table]
	if !ok {
		existing, err := s.tableColumns(tx, table)
		if err != nil {
			return err
		}
		known = existing
		s.columns[table] = known
	}

	if len(known) == 0 {
		defs := make([]string, 0, len(row))
		for _, c := range row {
			defs = append(defs, columnDef(c))
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(defs, ", "))
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
		for _, c := range row {
			known[c.Name] = true
		}
		s.logger.Info("created table", "table", table, "columns", len(row))
	} else {
		for _, c := range row {
			if known[c.Name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(table), columnDef(c))
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
			known[c.Name] = true
			s.logger.Info("added column", "table", table, "column", c.Name)
		}
	}

	if len(keys) == 0 {
		return nil
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = quote(k)
	}
	index := quote(table + "_" + strings.Join(keys, "_"))
	stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)", index, quote(table), strings.Join(quoted, ", "))
	return tx.Exec(stmt).Error
}

func (s *Store) tableColumns(tx *gorm.DB, table string) (map[string]bool, error) {
	var names []string
	if err := tx.Raw("SELECT name FROM pragma_table_info(?)", table).Scan(&names).Error; err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	return known, nil
}

// columnDef declares a column with an affinity matching its value. Columns
// first seen with a nil value are declared without a type.
func columnDef(c domain.Column) string {
	switch c.Value.(type) {
	case string:
		return quote(c.Name) + " TEXT"
	case int, int64:
		return quote(c.Name) + " INTEGER"
	case time.Time:
		return quote(c.Name) + " DATETIME"
	default:
		return quote(c.Name)
	}
}

func nonKeyColumns(keys []string, row domain.Row) []string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var cols []string
	for _, c := range row {
		if !isKey[c.Name] {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func clauseColumns(names []string) []clause.Column {
	cols := make([]clause.Column, len(names))
	for i, n := range names {
		cols[i] = clause.Column{Name: n}
	}
	return cols
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
