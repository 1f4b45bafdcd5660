// Package importer reads federation record sheets into record book
// candidates.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

// MaxHeaderSearchRows bounds how far down the sheet the header may start.
const MaxHeaderSearchRows = 10

var (
	// ErrHeaderNotFound is returned when no row names the required columns.
	ErrHeaderNotFound = errors.New("importer: header row not found")

	// ErrNoRows is returned when the sheet has a header but no data.
	ErrNoRows = errors.New("importer: no data rows after header")
)

// column is one logical sheet column and the header spellings it accepts.
type column struct {
	field    string
	aliases  []string
	required bool
}

var columns = []column{
	{field: "movement", aliases: []string{"movement", "lift", "event"}, required: true},
	{field: "division", aliases: []string{"division", "age division", "category"}, required: true},
	{field: "sex", aliases: []string{"sex", "gender"}, required: true},
	{field: "equipment", aliases: []string{"equipment", "modality"}, required: true},
	{field: "weight_class", aliases: []string{"weight class", "weightclass", "class"}, required: true},
	{field: "weight", aliases: []string{"weight", "kg", "record", "result"}, required: true},
	{field: "athlete_name", aliases: []string{"athlete", "name", "athlete name", "lifter"}, required: true},
	{field: "team", aliases: []string{"team", "club"}},
	{field: "competition", aliases: []string{"competition", "meet"}},
	{field: "date", aliases: []string{"date", "set on"}},
}

// Sheet is a parsed record sheet.
type Sheet struct {
	// HeaderRow is the 1-based line of the header.
	HeaderRow  int
	Candidates []records.Candidate
}

// ReadCSV parses a record sheet. Rows keep their 1-based line number.
// Unparseable cells mark the candidate Malformed so the import reports the
// row as failed instead of aborting.
func ReadCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importer: failed to read CSV: %w", err)
	}

	headerIdx, index := findHeader(rows)
	if headerIdx < 0 {
		return nil, ErrHeaderNotFound
	}

	sheet := &Sheet{HeaderRow: headerIdx + 1}
	for i, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}
		sheet.Candidates = append(sheet.Candidates, buildCandidate(row, index, headerIdx+i+2))
	}
	if len(sheet.Candidates) == 0 {
		return nil, ErrNoRows
	}
	return sheet, nil
}

// findHeader returns the header row and a field -> position index.
func findHeader(rows [][]string) (int, map[string]int) {
	limit := MaxHeaderSearchRows
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		index := matchHeader(rows[i])
		if index != nil {
			return i, index
		}
	}
	return -1, nil
}

func matchHeader(row []string) map[string]int {
	byName := make(map[string]int, len(row))
	for i, h := range row {
		byName[normalizeHeader(h)] = i
	}

	index := make(map[string]int, len(columns))
	for _, c := range columns {
		for _, alias := range c.aliases {
			if pos, ok := byName[alias]; ok {
				index[c.field] = pos
				break
			}
		}
		if _, ok := index[c.field]; !ok && c.required {
			return nil
		}
	}
	return index
}

func normalizeHeader(h string) string {
	h = cleanCell(h)
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, "_", " ")
	h = strings.TrimSuffix(h, " (kg)")
	return strings.Join(strings.Fields(h), " ")
}

// cleanCell strips whitespace, a UTF-8 BOM, spreadsheet formula prefixes
// and surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if cleanCell(v) != "" {
			return false
		}
	}
	return true
}

func buildCandidate(row []string, index map[string]int, line int) records.Candidate {
	cell := func(field string) string {
		pos, ok := index[field]
		if !ok || pos >= len(row) {
			return ""
		}
		return cleanCell(row[pos])
	}

	c := records.Candidate{
		Row:         line,
		Movement:    cell("movement"),
		Division:    cell("division"),
		Sex:         cell("sex"),
		Equipment:   cell("equipment"),
		WeightClass: cell("weight_class"),
		AthleteName: cell("athlete_name"),
		Team:        cell("team"),
		Competition: cell("competition"),
	}

	if raw := cell("weight"); raw != "" {
		w, err := parseWeight(raw)
		if err != nil {
			c.Malformed = records.RowError("weight", "unreadable weight %q", raw)
			return c
		}
		c.Weight = w
	}

	if raw := cell("date"); raw != "" {
		d, err := timeutil.ParseSheetDate(raw)
		if err != nil {
			c.Malformed = records.RowError("date", "unreadable date %q", raw)
			return c
		}
		c.Date = d
	}
	return c
}

// parseWeight accepts "212.5", "212,5" and "212.5 kg".
func parseWeight(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "kg"))
	s = strings.ReplaceAll(s, ",", ".")
	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("weight %q is not a finite number", s)
	}
	return w, nil
}
