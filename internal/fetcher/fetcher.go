// Package fetcher parses uploaded CSV and XLSX files into the normalized
// company name list a job runs over.
package fetcher

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .csv nor .xlsx.
	ErrUnsupportedFormat = eris.New("fetcher: only .csv and .xlsx files are supported")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = eris.New("fetcher: uploaded file is empty")
	// ErrNoCompanies is returned when no usable name is left after cleaning.
	ErrNoCompanies = eris.New("fetcher: no valid company names found in first column")
)

// headerNames are first-row values treated as a column header, not a company.
var headerNames = map[string]bool{
	"company":      true,
	"company name": true,
	"company_name": true,
	"companies":    true,
	"name":         true,
}

// Format is a supported upload type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file name to its upload format by extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Wrapf(ErrUnsupportedFormat, "fetcher: %q", filename)
}

// LoadCompanyNames reads the first column of every row of a CSV or XLSX
// upload and returns the normalized, de-duplicated names in file order.
func LoadCompanyNames(filename string, r io.Reader) ([]string, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read upload")
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = ReadCSV(data, CSVOptions{LazyQuotes: true})
	case FormatXLSX:
		rows, err = ReadXLSX(data, XLSXOptions{})
	}
	if err != nil {
		return nil, err
	}

	names := CleanNames(FirstColumn(rows))
	if len(names) == 0 {
		return nil, ErrNoCompanies
	}
	return names, nil
}

// FirstColumn returns the first cell of every non-empty row.
func FirstColumn(rows [][]string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out = append(out, row[0])
	}
	return out
}

// NormalizeName trims and lower-cases a company name.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CleanNames normalizes every value, drops blanks and a leading header
// cell, and removes duplicates keeping the first occurrence.
func CleanNames(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for i, v := range values {
		name := NormalizeName(v)
		if name == "" {
			continue
		}
		if i == 0 && headerNames[name] {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
