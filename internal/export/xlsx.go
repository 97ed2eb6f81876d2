package export

import (
	"bytes"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/enrich-cli/internal/model"
)

// SheetName is the worksheet that holds the results.
const SheetName = "results"

// WriteXLSX writes a single-sheet workbook with the same columns as the CSV
// export. All cells are strings so booleans read back as "true"/"false".
func WriteXLSX(w io.Writer, results []model.CompanyResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Columns)
	for _, r := range results {
		addRow(sheet, Row(r))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// XLSX returns the results as XLSX bytes.
func XLSX(results []model.CompanyResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
