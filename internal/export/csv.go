// Package export serializes job results to CSV and XLSX tables.
package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Columns is the fixed header of every export.
var Columns = []string{
	"company",
	"website",
	"website_found",
	"phone",
	"phone_found",
	"email",
	"email_found",
	"source",
	"status",
}

// Row renders a result in Columns order.
func Row(r model.CompanyResult) []string {
	return []string{
		r.Company,
		r.Website,
		strconv.FormatBool(r.WebsiteFound),
		r.Phone,
		strconv.FormatBool(r.PhoneFound),
		r.Email,
		strconv.FormatBool(r.EmailFound),
		string(r.Source),
		string(r.Status),
	}
}

// WriteCSV writes the header and one row per result, in order.
func WriteCSV(w io.Writer, results []model.CompanyResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range results {
		if err := cw.Write(Row(r)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// CSV returns the results as CSV bytes.
func CSV(results []model.CompanyResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
