package domain

import (
	"strings"
	"time"

	"golang.org/x/net/html"
)

// strayWhitespace is removed from the page before parsing; the site embeds
// tabs and line breaks inside cell text.
var strayWhitespace = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// rowTimeLayouts are tried in order for a row's data-timestamp attribute.
var rowTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
}

// rowLocalTimeLayouts carry no offset and are read as Brisbane time.
var rowLocalTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ExtractOutages returns one record per outage row of the page, in document
// order. A page without the outages table yields no records.
func ExtractOutages(page string) []OutageRecord {
	doc := parseDocument(strayWhitespace.Replace(page))

	var records []OutageRecord
	for _, tr := range outageRows(doc) {
		if isPlaceholderRow(tr) {
			continue
		}
		records = append(records, outageFromRow(tr))
	}
	return records
}

// isPlaceholderRow reports whether tr is the single spanning cell the site
// shows when no outages are reported.
func isPlaceholderRow(tr *html.Node) bool {
	tds := cells(tr)
	if len(tds) != 1 {
		return false
	}
	_, colspan := attr(tds[0], "colspan")
	_, rowspan := attr(tds[0], "rowspan")
	return colspan || rowspan
}

func outageFromRow(tr *html.Node) OutageRecord {
	title, _ := attr(tr, "title")
	return OutageRecord{
		Title:       title,
		Region:      cellText(tr, "region"),
		Suburb:      cellText(tr, "suburb"),
		Cust:        ParseLeadingInt(cellText(tr, "cust")),
		Cause:       cellText(tr, "cause"),
		RetrievedAt: rowTimestamp(tr),
	}
}

// rowTimestamp reads the reported time of an outage row. Nil when the time
// cell is missing, has no text, has no data-timestamp, or it does not parse.
func rowTimestamp(tr *html.Node) *time.Time {
	td := cellWithClass(tr, "time")
	if td == nil {
		return nil
	}
	if strings.TrimSpace(textContent(td)) == "" {
		return nil
	}
	raw, ok := attr(td, "data-timestamp")
	if !ok {
		return nil
	}
	t, ok := parseRowTime(raw)
	if !ok {
		return nil
	}
	return &t
}

func parseRowTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range rowTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(Brisbane), true
		}
	}
	for _, layout := range rowLocalTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, Brisbane); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
