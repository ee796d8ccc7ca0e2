// Command validate performs data integrity checks on the SQLite database the
// ETL writes to. It verifies that every table has the expected columns, that
// stored demand ratings match the classification of the stored demand, and
// that outage and summary rows are internally consistent.
//
// Usage:
//
//	go run ./cmd/validate -db data.sqlite
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/energex-outages-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "", "path to the ETL SQLite database")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dbPath); code != 0 {
		os.Exit(code)
	}
}

func run(dbPath string) int {
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open %s: %v\n", dbPath, err)
		return 1
	}

	fmt.Println("=== Energex ETL Integrity Validation ===")
	fmt.Println()

	phases := validate(db)

	counts := map[string]int64{}
	for _, table := range []string{domain.TableDemand, domain.TableData, domain.TableSummary} {
		var n int64
		if err := db.Table(table).Count(&n).Error; err == nil {
			counts[table] = n
		}
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d demand, %d data, %d summary\n",
		counts[domain.TableDemand], counts[domain.TableData], counts[domain.TableSummary])

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(db *gorm.DB) []*phase {
	schema := validateSchema(db)
	if !schema.passed() {
		return []*phase{schema}
	}
	return []*phase{
		schema,
		validateDemand(db),
		validateOutages(db),
		validateSummary(db),
	}
}

// ── Phase 1: Schema ──
// Every table exists with at least the columns its records render.

func validateSchema(db *gorm.DB) *phase {
	p := &phase{name: "Phase 1: Schema (tables and columns)"}

	expected := map[string]domain.Row{
		domain.TableDemand:  domain.DemandRecord{}.Row(),
		domain.TableData:    domain.OutageRecord{}.Row(),
		domain.TableSummary: domain.SummaryRecord{}.Row(),
	}
	for _, table := range []string{domain.TableDemand, domain.TableData, domain.TableSummary} {
		var names []string
		if err := db.Raw("SELECT name FROM pragma_table_info(?)", table).Scan(&names).Error; err != nil {
			p.errorf("%s: %v", table, err)
			continue
		}
		if len(names) == 0 {
			p.errorf("%s: table missing", table)
			continue
		}
		have := make(map[string]bool, len(names))
		for _, n := range names {
			have[n] = true
		}
		for _, c := range expected[table] {
			if !have[c.Name] {
				p.errorf("%s: missing column %q", table, c.Name)
			}
		}
	}
	return p
}

// ── Phase 2: Demand ──
// Stored ratings agree with the classification of the stored demand.

type demandRow struct {
	Demand int
	Rating *int
}

func validateDemand(db *gorm.DB) *phase {
	p := &phase{name: "Phase 2: Demand ratings"}

	var rows []demandRow
	if err := db.Table(domain.TableDemand).Select("demand, rating").Scan(&rows).Error; err != nil {
		p.errorf("read demand: %v", err)
		return p
	}
	checkDemandRatings(p, rows)
	checkNullKeys(p, db, domain.TableDemand)
	return p
}

func checkDemandRatings(p *phase, rows []demandRow) {
	for i, r := range rows {
		want := domain.ClassifyDemand(fmt.Sprint(r.Demand), time.Time{}).Rating
		switch {
		case r.Rating == nil && want == nil:
		case r.Rating == nil || want == nil:
			p.errorf("demand row %d: demand %d has rating %v, expected %v", i+1, r.Demand, fmtInt(r.Rating), fmtInt(want))
		case *r.Rating != *want:
			p.errorf("demand row %d: demand %d has rating %d, expected %d", i+1, r.Demand, *r.Rating, *want)
		}
	}
}

// ── Phase 3: Outages ──

type outageRow struct {
	Title  string
	Region string
	Suburb string
	Cust   int
}

func validateOutages(db *gorm.DB) *phase {
	p := &phase{name: "Phase 3: Outage rows"}

	var rows []outageRow
	if err := db.Table(domain.TableData).Select("title, region, suburb, cust").Scan(&rows).Error; err != nil {
		p.errorf("read data: %v", err)
		return p
	}
	checkOutageRows(p, rows)
	return p
}

func checkOutageRows(p *phase, rows []outageRow) {
	for i, r := range rows {
		if r.Cust < 0 {
			p.errorf("data row %d (%s): negative customer count %d", i+1, r.Title, r.Cust)
		}
		if r.Region == "" && r.Suburb == "" {
			p.errorf("data row %d (%s): no region or suburb", i+1, r.Title)
		}
	}
}

// ── Phase 4: Summary ──
// A summary row is either fully unavailable or carries a retrieval time and
// a customer count.

type summaryRow struct {
	HasRetrieved bool
	HasUpdated   bool
	TotalCust    *int
}

func validateSummary(db *gorm.DB) *phase {
	p := &phase{name: "Phase 4: Summary rows"}

	var rows []summaryRow
	err := db.Table(domain.TableSummary).
		Select("retrieved_at IS NOT NULL AS has_retrieved, updated_at IS NOT NULL AS has_updated, total_cust").
		Scan(&rows).Error
	if err != nil {
		p.errorf("read summary: %v", err)
		return p
	}
	checkSummaryRows(p, rows)
	return p
}

func checkSummaryRows(p *phase, rows []summaryRow) {
	for i, r := range rows {
		switch {
		case !r.HasRetrieved && (r.HasUpdated || r.TotalCust != nil):
			p.errorf("summary row %d: values without retrieved_at", i+1)
		case r.HasRetrieved && r.TotalCust == nil:
			p.errorf("summary row %d: retrieved_at without total_cust", i+1)
		case r.TotalCust != nil && *r.TotalCust < 0:
			p.errorf("summary row %d: negative total_cust %d", i+1, *r.TotalCust)
		}
	}
}

func checkNullKeys(p *phase, db *gorm.DB, table string) {
	var n int64
	if err := db.Table(table).Where("retrieved_at IS NULL").Count(&n).Error; err != nil {
		p.errorf("%s: %v", table, err)
		return
	}
	if n > 0 {
		p.errorf("%s: %d rows without retrieved_at", table, n)
	}
}

func fmtInt(v *int) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprint(*v)
}
