package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	sqlitestore "github.com/couchcryptid/energex-outages-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/energex-outages-etl/internal/domain"
)

func intPtr(v int) *int { return &v }

// seedDatabase writes one run's worth of rows through the ETL store.
func seedDatabase(t *testing.T, summaryAvailable bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.sqlite")
	store, err := sqlitestore.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2021, time.March, 1, 9, 5, 0, 0, domain.Brisbane)
	reported := now.Add(-30 * time.Minute)

	require.NoError(t, store.Save(ctx, domain.TableDemand, domain.KeyColumns, domain.ClassifyDemand("2750", now).Row()))
	outage := domain.OutageRecord{Title: "Outage 101", Region: "LOGAN", Suburb: "SLACKS CREEK", Cust: 15, Cause: "Vegetation", RetrievedAt: &reported}
	require.NoError(t, store.Save(ctx, domain.TableData, domain.KeyColumns, outage.Row()))

	summary := domain.SummaryRecord{}
	if summaryAvailable {
		summary = domain.SummaryRecord{RetrievedAt: &now, UpdatedAt: &reported, TotalCust: intPtr(15)}
	}
	require.NoError(t, store.Save(ctx, domain.TableSummary, domain.KeyColumns, summary.Row()))
	return path
}

func openDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestValidate_SeededDatabase(t *testing.T) {
	for _, available := range []bool{true, false} {
		db := openDB(t, seedDatabase(t, available))
		for _, p := range validate(db) {
			assert.True(t, p.passed(), "%s (summary available=%v): %v", p.name, available, p.errors)
		}
	}
}

func TestValidate_MissingTables(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "empty.sqlite"))

	phases := validate(db)
	require.Len(t, phases, 1, "later phases are skipped when the schema is wrong")
	assert.False(t, phases[0].passed())
	assert.Contains(t, phases[0].errors, "demand: table missing")
}

func TestValidate_WrongRating(t *testing.T) {
	db := openDB(t, seedDatabase(t, true))
	require.NoError(t, db.Exec("UPDATE demand SET rating = 1").Error)

	phases := validate(db)
	require.Len(t, phases, 4)
	assert.False(t, phases[1].passed())
	assert.Equal(t, []string{"demand row 1: demand 2750 has rating 1, expected 4"}, phases[1].errors)
}

func TestCheckDemandRatings(t *testing.T) {
	p := &phase{}
	checkDemandRatings(p, []demandRow{
		{Demand: 1000, Rating: intPtr(1)},
		{Demand: 4500, Rating: intPtr(8)},
		{Demand: 1999, Rating: nil},
	})
	assert.Equal(t, []string{"demand row 3: demand 1999 has rating nil, expected 2"}, p.errors)
}

func TestCheckOutageRows(t *testing.T) {
	p := &phase{}
	checkOutageRows(p, []outageRow{
		{Title: "ok", Region: "LOGAN", Cust: 3},
		{Title: "negative", Region: "LOGAN", Cust: -1},
		{Title: "nowhere", Cust: 2},
	})
	assert.Equal(t, []string{
		"data row 2 (negative): negative customer count -1",
		"data row 3 (nowhere): no region or suburb",
	}, p.errors)
}

func TestCheckSummaryRows(t *testing.T) {
	p := &phase{}
	checkSummaryRows(p, []summaryRow{
		{},
		{HasRetrieved: true, HasUpdated: true, TotalCust: intPtr(10)},
		{HasRetrieved: true, TotalCust: intPtr(0)},
		{HasUpdated: true},
		{HasRetrieved: true},
	})
	assert.Equal(t, []string{
		"summary row 4: values without retrieved_at",
		"summary row 5: retrieved_at without total_cust",
	}, p.errors)
}
