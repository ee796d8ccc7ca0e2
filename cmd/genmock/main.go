// Command genmock renders mock Energex demand and outages pages from a CSV of
// outages and writes them into a page cache directory, so the ETL can run
// offline with FETCH_CACHE_DIR pointing at it. It then runs the real pipeline
// over the cached pages with a fixed clock and prints what a run would save.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv cmd/genmock/testdata/outages.csv \
//	  -demand 2750 \
//	  -cache-dir data/cache
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"html/template"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/energex-outages-etl/internal/adapter/energex"
	"github.com/couchcryptid/energex-outages-etl/internal/config"
	"github.com/couchcryptid/energex-outages-etl/internal/domain"
	"github.com/couchcryptid/energex-outages-etl/internal/observability"
	"github.com/couchcryptid/energex-outages-etl/internal/pipeline"
)

// outageRow is one CSV line rendered as a table row.
type outageRow struct {
	Title     string
	Region    string
	Suburb    string
	Cust      string
	Cause     string
	Timestamp string
}

type pageData struct {
	Updated   string
	TotalCust int
	Rows      []outageRow
}

var outagesTemplate = template.Must(template.New("outages").Parse(`<!DOCTYPE html>
<html>
<head><title>Emergency outages</title></head>
<body>
<div id="unplanned-outages-wrapper">
	<table id="unplanned-outages-table">
		<caption>
			Last updated: {{.Updated}}
			Total affected customers: {{.TotalCust}}
		</caption>
		<thead>
			<tr><th>Region</th><th>Suburb</th><th>Customers</th><th>Cause</th><th>Time</th></tr>
		</thead>
		<tbody>
		{{- range .Rows}}
			<tr title="{{.Title}}">
				<td class="region">{{.Region}}</td>
				<td class="suburb">{{.Suburb}}</td>
				<td class="cust">{{.Cust}}</td>
				<td class="cause">{{.Cause}}</td>
				<td class="time"{{if .Timestamp}} data-timestamp="{{.Timestamp}}"{{end}}>{{.Timestamp}}</td>
			</tr>
		{{- else}}
			<tr><td colspan="5">There are currently no unplanned outages.</td></tr>
		{{- end}}
		</tbody>
	</table>
</div>
</body>
</html>
`))

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV of outages: title,region,suburb,cust,cause,timestamp")
	demand := flag.Int("demand", 2750, "network demand in MW")
	cacheDir := flag.String("cache-dir", "", "page cache directory to write into")
	demandURL := flag.String("demand-url", config.DefaultDemandURL, "demand URL the page is cached under")
	outagesURL := flag.String("outages-url", config.DefaultOutagesURL, "outages URL the page is cached under")
	updated := flag.String("updated", "2021-03-01T09:00:00+10:00", "RFC3339 time shown in the caption")
	flag.Parse()

	if *csvPath == "" || *cacheDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -cache-dir")
	}

	updatedAt, err := time.Parse(time.RFC3339, *updated)
	if err != nil {
		return fmt.Errorf("parse -updated: %w", err)
	}

	rows, err := loadCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", *csvPath, err)
	}
	log.Printf("%s: %d outages", *csvPath, len(rows))

	page, err := renderOutages(rows, updatedAt.In(domain.Brisbane))
	if err != nil {
		return fmt.Errorf("render outages page: %w", err)
	}

	if err := os.MkdirAll(*cacheDir, 0o755); err != nil {
		return err
	}
	demandFile := energex.CacheFile(*cacheDir, *demandURL)
	if err := os.WriteFile(demandFile, []byte(fmt.Sprintf("%d\n", *demand)), 0o600); err != nil {
		return fmt.Errorf("write demand page: %w", err)
	}
	log.Printf("wrote demand page: %s", demandFile)

	outagesFile := energex.CacheFile(*cacheDir, *outagesURL)
	if err := os.WriteFile(outagesFile, []byte(page), 0o600); err != nil {
		return fmt.Errorf("write outages page: %w", err)
	}
	log.Printf("wrote outages page: %s", outagesFile)

	cfg := &config.Config{
		DemandURL:     *demandURL,
		OutagesURL:    *outagesURL,
		FetchTimeout:  5 * time.Second,
		FetchCacheDir: *cacheDir,
	}
	// A fixed clock keeps the printed records reproducible.
	clock := clockwork.NewFakeClockAt(updatedAt.Add(5 * time.Minute))
	report, saved, err := previewRun(context.Background(), cfg, clock)
	if err != nil {
		return fmt.Errorf("preview run: %w", err)
	}
	printRecords(report, saved)
	return nil
}

// rowCollector keeps saved rows in memory instead of persisting them.
type rowCollector struct {
	rows map[string][]domain.Row
}

func (c *rowCollector) Save(_ context.Context, table string, _ []string, row domain.Row) error {
	if c.rows == nil {
		c.rows = make(map[string][]domain.Row)
	}
	c.rows[table] = append(c.rows[table], row)
	return nil
}

// previewRun runs the real pipeline against the cached pages and returns the
// report and the outage rows it would have saved.
func previewRun(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (pipeline.Report, []domain.Row, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := &rowCollector{}
	p := pipeline.New(energex.NewClient(cfg, logger), store, logger, observability.NewMetricsForTesting(), clock)
	report, err := p.Run(ctx)
	if err != nil {
		return pipeline.Report{}, nil, err
	}
	return report, store.rows[domain.TableData], nil
}

func loadCSV(path string) ([]outageRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 1 {
		return nil, fmt.Errorf("missing header row")
	}

	idx := map[string]int{}
	for i, h := range all[0] {
		idx[strings.TrimSpace(h)] = i
	}

	rows := make([]outageRow, 0, len(all)-1)
	for _, rec := range all[1:] {
		rows = append(rows, outageRow{
			Title:     get(rec, idx, "title"),
			Region:    get(rec, idx, "region"),
			Suburb:    get(rec, idx, "suburb"),
			Cust:      get(rec, idx, "cust"),
			Cause:     get(rec, idx, "cause"),
			Timestamp: get(rec, idx, "timestamp"),
		})
	}
	return rows, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func renderOutages(rows []outageRow, updated time.Time) (string, error) {
	data := pageData{
		Updated: updated.Format("Monday 2 January 2006 3:04pm"),
		Rows:    rows,
	}
	for _, r := range rows {
		data.TotalCust += domain.ParseLeadingInt(r.Cust)
	}

	var buf bytes.Buffer
	if err := outagesTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func printRecords(report pipeline.Report, outages []domain.Row) {
	fmt.Println("\n=== Records a run would save ===")
	fmt.Printf("run at %s\n", report.RetrievedAt.Format(time.RFC3339))
	fmt.Printf("demand: %d", report.Demand.Demand)
	if report.Demand.Rating != nil {
		fmt.Printf(" (rating %d)", *report.Demand.Rating)
	}
	fmt.Println()

	fmt.Printf("data: %d rows\n", len(outages))
	for _, row := range outages {
		m := row.Map()
		ts := "-"
		if t, ok := m[domain.ColumnRetrievedAt].(time.Time); ok {
			ts = t.Format(time.RFC3339)
		}
		fmt.Printf("  %-12v %-16v %-16v %6v  %-20v %s\n", m["title"], m["region"], m["suburb"], m["cust"], m["cause"], ts)
	}

	s := report.Summary
	if !s.Available() {
		fmt.Println("summary: unavailable")
		return
	}
	fmt.Printf("summary: %d customers", *s.TotalCust)
	if s.UpdatedAt != nil {
		fmt.Printf(", updated %s", s.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Println()
}
