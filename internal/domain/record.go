package domain

import "time"

// Table names used by the store.
const (
	TableDemand  = "demand"
	TableData    = "data"
	TableSummary = "summary"
)

// ColumnRetrievedAt is the natural key of every table.
const ColumnRetrievedAt = "retrieved_at"

// KeyColumns lists the unique key columns passed with every save.
var KeyColumns = []string{ColumnRetrievedAt}

// Column is a single named value in a Row. Value is a string, int,
// time.Time, or nil.
type Column struct {
	Name  string
	Value any
}

// Row is an ordered set of columns destined for one table.
type Row []Column

// Get returns the value of the named column and whether it exists.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Map returns the row as a column-name keyed map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, c := range r {
		m[c.Name] = c.Value
	}
	return m
}

// DemandRecord is the classified network demand for one run.
type DemandRecord struct {
	Demand      int
	Rating      *int
	RetrievedAt time.Time
}

// Row renders the record for the demand table.
func (d DemandRecord) Row() Row {
	return Row{
		{Name: "demand", Value: d.Demand},
		{Name: "rating", Value: intOrNil(d.Rating)},
		{Name: ColumnRetrievedAt, Value: d.RetrievedAt},
	}
}

// OutageRecord is one row of the unplanned outages table.
type OutageRecord struct {
	Title  string
	Region string
	Suburb string
	Cust   int
	Cause  string

	// RetrievedAt is the time the site reported for this outage, not the
	// run time. Nil when the row carries no usable timestamp.
	RetrievedAt *time.Time
}

// Row renders the record for the data table.
func (o OutageRecord) Row() Row {
	return Row{
		{Name: "title", Value: o.Title},
		{Name: "region", Value: o.Region},
		{Name: "suburb", Value: o.Suburb},
		{Name: "cust", Value: o.Cust},
		{Name: "cause", Value: o.Cause},
		{Name: ColumnRetrievedAt, Value: timeOrNil(o.RetrievedAt)},
	}
}

// SummaryRecord holds the caption facts of the outages table. All fields are
// nil when no caption could be read.
type SummaryRecord struct {
	RetrievedAt *time.Time
	UpdatedAt   *time.Time
	TotalCust   *int
}

// Available reports whether the caption was matched this run.
func (s SummaryRecord) Available() bool {
	return s.RetrievedAt != nil
}

// Row renders the record for the summary table.
func (s SummaryRecord) Row() Row {
	return Row{
		{Name: ColumnRetrievedAt, Value: timeOrNil(s.RetrievedAt)},
		{Name: "updated_at", Value: timeOrNil(s.UpdatedAt)},
		{Name: "total_cust", Value: intOrNil(s.TotalCust)},
	}
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
