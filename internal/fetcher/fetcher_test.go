package fetcher

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string, order ...string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	if len(order) == 0 {
		for name := range sheets {
			order = append(order, name)
		}
	}
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("companies.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("list.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	for _, name := range []string{"list.xls", "names.txt", "noext", ""} {
		_, err := DetectFormat(name)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), name)
	}
}

func TestLoadCompanyNames_CSV(t *testing.T) {
	input := "Acme Corp,extra\n  acme corp \n\nBeta Inc\n\"Smith, Jones & Co\",x\n"
	names, err := LoadCompanyNames("upload.csv", strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"acme corp", "beta inc", "smith, jones & co"}, names)
}

func TestLoadCompanyNames_CSVWithBOMAndHeader(t *testing.T) {
	input := "\xef\xbb\xbfCompany\nAcme Corp\nBeta Inc\n"
	names, err := LoadCompanyNames("upload.csv", strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"acme corp", "beta inc"}, names)
}

func TestLoadCompanyNames_HeaderOnlyFirstRow(t *testing.T) {
	input := "Acme\nname\n"
	names, err := LoadCompanyNames("upload.csv", strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "name"}, names)
}

func TestLoadCompanyNames_XLSX(t *testing.T) {
	data := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Company Name", "City"},
			{"Acme Corp", "Pune"},
			{"", "ignored"},
			{"ACME CORP"},
			{"Beta Inc"},
		},
		"Other": {{"Not Read"}},
	}, "Sheet1", "Other")

	names, err := LoadCompanyNames("upload.xlsx", bytes.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, []string{"acme corp", "beta inc"}, names)
}

func TestLoadCompanyNames_Errors(t *testing.T) {
	_, err := LoadCompanyNames("upload.pdf", strings.NewReader("acme"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = LoadCompanyNames("upload.csv", strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyFile))

	_, err = LoadCompanyNames("upload.csv", strings.NewReader("\n  \n,b\n"))
	assert.True(t, errors.Is(err, ErrNoCompanies))

	_, err = LoadCompanyNames("upload.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open workbook")
}

func TestReadCSV_Options(t *testing.T) {
	rows, err := ReadCSV([]byte("a|b\n# note\n1|2|3\n"), CSVOptions{Delimiter: '|', Comment: '#'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2", "3"}}, rows)
}

func TestReadCSV_BareQuoteNeedsLazy(t *testing.T) {
	input := []byte("acme \"the best\" corp\n")

	_, err := ReadCSV(input, CSVOptions{})
	assert.Error(t, err)

	rows, err := ReadCSV(input, CSVOptions{LazyQuotes: true})
	require.NoError(t, err)
	assert.Equal(t, `acme "the best" corp`, rows[0][0])
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	data := createTestXLSX(t, map[string][][]string{
		"First":  {{"a"}},
		"Second": {{"b"}},
	}, "First", "Second")

	rows, err := ReadXLSX(data, XLSXOptions{SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b"}}, rows)

	rows, err = ReadXLSX(data, XLSXOptions{SheetName: "First"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, rows)

	_, err = ReadXLSX(data, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)

	_, err = ReadXLSX(data, XLSXOptions{SheetIndex: 5})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestCleanNames(t *testing.T) {
	assert.Equal(t, []string{"acme", "beta"}, CleanNames([]string{"company", " Acme ", "", "acme", "BETA"}))
	assert.Empty(t, CleanNames(nil))
}
