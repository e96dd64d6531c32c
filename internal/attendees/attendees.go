// Package attendees reads the official attendee list of a meeting from an
// xlsx or csv spreadsheet.
package attendees

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	surnameHeaders = []string{"apellidos", "apellido", "surname", "surnames", "last name", "lastname", "primer apellido"}
	nameHeaders    = []string{"nombre", "nombres", "name", "firstname", "first name"}
)

// ParseFile reads path, choosing the format by extension. Anything that is
// not .csv is opened as a workbook.
func ParseFile(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseCSV(f)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseXLSX(f)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) ([]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return []string{}, nil
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return FromRows(rows), nil
}

// ParseCSV reads comma separated rows with a header line.
func ParseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return FromRows(rows), nil
}

// FromRows rebuilds full names from a header row plus data rows.
//
// A surname column and a name column are looked up by header; when both are
// present they are joined, when only one is present it is used alone, and
// otherwise the first mostly non-numeric column is taken. Names are title
// cased, names of two characters or fewer are dropped, and the result is
// deduplicated and sorted.
func FromRows(rows [][]string) []string {
	if len(rows) == 0 {
		return []string{}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	data := rows[1:]

	surnameCol := findColumn(header, surnameHeaders, -1)
	nameCol := findColumn(header, nameHeaders, surnameCol)

	var names []string
	switch {
	case nameCol >= 0 && surnameCol >= 0:
		for _, row := range data {
			n, s := cell(row, nameCol), cell(row, surnameCol)
			switch {
			case n != "" && s != "":
				names = append(names, n+" "+s)
			case n != "":
				names = append(names, n)
			case s != "":
				names = append(names, s)
			}
		}
	case nameCol >= 0 || surnameCol >= 0:
		col := nameCol
		if col < 0 {
			col = surnameCol
		}
		for _, row := range data {
			if v := cell(row, col); v != "" {
				names = append(names, v)
			}
		}
	default:
		if col := textColumn(data, len(header)); col >= 0 {
			for _, row := range data {
				if v := cell(row, col); v != "" {
					names = append(names, v)
				}
			}
		}
	}
	return clean(names)
}

func findColumn(header, candidates []string, skip int) int {
	for _, cand := range candidates {
		for i, h := range header {
			if i == skip {
				continue
			}
			if h == cand || strings.Contains(h, cand) {
				return i
			}
		}
	}
	return -1
}

// textColumn returns the first column whose first five values are at least
// 80% non-numeric.
func textColumn(data [][]string, width int) int {
	for col := 0; col < width; col++ {
		var sample []string
		for _, row := range data {
			if v := cell(row, col); v != "" {
				sample = append(sample, v)
				if len(sample) == 5 {
					break
				}
			}
		}
		if len(sample) == 0 {
			continue
		}
		text := 0
		for _, s := range sample {
			if !numeric(s) {
				text++
			}
		}
		if float64(text) >= float64(len(sample))*0.8 {
			return col
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if l := strings.ToLower(v); l == "nan" || l == "nat" {
		return ""
	}
	return v
}

func numeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func clean(names []string) []string {
	title := cases.Title(language.Spanish)
	seen := make(map[string]bool)
	out := []string{}
	for _, n := range names {
		n = strings.Join(strings.Fields(n), " ")
		if len([]rune(n)) <= 2 {
			continue
		}
		n = title.String(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
