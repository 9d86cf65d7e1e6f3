package report

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// writeWorkbook saves one sheet per table.
func writeWorkbook(path string, tables []table) error {
	f := xlsx.NewFile()
	for _, t := range tables {
		records, err := csv.NewReader(bytes.NewReader(t.data)).ReadAll()
		if err != nil {
			return eris.Wrapf(err, "xlsx: reread %s", t.sheet)
		}
		sheet, err := f.AddSheet(t.sheet)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", t.sheet)
		}
		for _, rec := range records {
			row := sheet.AddRow()
			for _, v := range rec {
				row.AddCell().SetString(v)
			}
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save workbook")
	}
	return nil
}
