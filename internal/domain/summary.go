package domain

import (
	"regexp"
	"strings"
	"time"
)

var (
	// captionRe captures the "Last updated" text and the affected customer
	// count. The first group is greedy, so it takes everything up to the
	// last "Total affected customers:" label.
	captionRe = regexp.MustCompile(`(?s).*Last updated: (.+)Total affected customers: (\d+).*`)

	meridiemRe       = regexp.MustCompile(`\s+(AM|PM)\b`)
	dottedMeridiemRe = regexp.MustCompile(`([AP])\.\s?M\b\.?`)
	sentenceDotRe    = regexp.MustCompile(`\.(\s|$)`)
	atWordRe         = regexp.MustCompile(`\bAT\b`)
)

// captionTimeLayouts is built once from every date form crossed with every
// clock form, in both orders. Input is upper-cased before matching.
var captionTimeLayouts = buildCaptionLayouts()

func buildCaptionLayouts() []string {
	dates := []string{
		"2 January 2006",
		"2 Jan 2006",
		"Monday 2 January 2006",
		"Monday 2 Jan 2006",
		"Mon 2 January 2006",
		"Mon 2 Jan 2006",
		"2/1/2006",
		"2006-01-02",
	}
	clocks := []string{
		"3:04PM",
		"3:04:05PM",
		"3PM",
		"15:04",
		"15:04:05",
	}
	layouts := make([]string, 0, 2*len(dates)*len(clocks))
	for _, d := range dates {
		for _, c := range clocks {
			layouts = append(layouts, d+" "+c+" -0700", c+" "+d+" -0700")
		}
	}
	return layouts
}

// ExtractSummary reads the "Last updated" time and affected customer count
// from the outages table caption. When the caption is missing or does not
// match, every field is nil. When it matches but the time does not parse,
// only UpdatedAt is nil.
func ExtractSummary(page string, now time.Time) SummaryRecord {
	caption := captionText(parseDocument(page))
	if caption == "" {
		return SummaryRecord{}
	}

	m := captionRe.FindStringSubmatch(caption)
	if m == nil {
		return SummaryRecord{}
	}

	total := ParseLeadingInt(m[2])
	retrieved := now

	summary := SummaryRecord{
		RetrievedAt: &retrieved,
		TotalCust:   &total,
	}
	if t, ok := parseCaptionTime(strings.TrimSpace(m[1]) + brisbaneOffset); ok {
		summary.UpdatedAt = &t
	}
	return summary
}

// parseCaptionTime parses the human readable caption time, e.g.
// "1 March 2021 9:00am +1000".
func parseCaptionTime(raw string) (time.Time, bool) {
	s := strings.ToUpper(raw)
	s = dottedMeridiemRe.ReplaceAllString(s, "${1}M")
	s = sentenceDotRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ",", " ")
	s = atWordRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = meridiemRe.ReplaceAllString(s, "$1")

	for _, layout := range captionTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(Brisbane), true
		}
	}
	return time.Time{}, false
}
