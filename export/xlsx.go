// Package export serializes the analysis outputs: gene lists as parallel
// columns across the sheets of one spreadsheet, per-tissue symbol lists as
// plain text, and summary plots as PNG.
package export

import (
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/carbocation/pfx"
)

// Column is one named, possibly ragged list of values within a sheet.
type Column struct {
	Name   string
	Values []string
}

// Sheet is one named tab of the output spreadsheet.
type Sheet struct {
	Name    string
	Columns []Column
}

// WriteXLSX writes the sheets into one spreadsheet at path. Columns of a
// sheet may have different lengths; shorter columns are padded with empty
// cells below their last value.
func WriteXLSX(path string, sheets []Sheet) error {
	f := excelize.NewFile()

	firstSheet := -1
	for _, sheet := range sheets {
		index := f.NewSheet(sheet.Name)
		if firstSheet < 0 {
			firstSheet = index
		}

		for c, col := range sheet.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, 1)
			if err != nil {
				return pfx.Err(err)
			}
			if err := f.SetCellValue(sheet.Name, cell, col.Name); err != nil {
				return pfx.Err(err)
			}

			for r, v := range col.Values {
				cell, err := excelize.CoordinatesToCellName(c+1, r+2)
				if err != nil {
					return pfx.Err(err)
				}
				if err := f.SetCellValue(sheet.Name, cell, v); err != nil {
					return pfx.Err(err)
				}
			}
		}
	}

	// Drop the default sheet excelize creates.
	if firstSheet >= 0 {
		f.DeleteSheet("Sheet1")
		f.SetActiveSheet(firstSheet)
	}

	return pfx.Err(f.SaveAs(path))
}

// ReadXLSXColumns reads one sheet back into named columns, dropping the
// empty-cell padding below each column's last value.
func ReadXLSXColumns(path, sheet string) ([]Column, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("export: sheet %q is empty", sheet)
	}

	cols := make([]Column, len(rows[0]))
	for c, name := range rows[0] {
		cols[c].Name = name
	}

	for _, row := range rows[1:] {
		for c := range cols {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			cols[c].Values = append(cols[c].Values, v)
		}
	}

	// Strip padding.
	for c := range cols {
		vals := cols[c].Values
		for len(vals) > 0 && vals[len(vals)-1] == "" {
			vals = vals[:len(vals)-1]
		}
		cols[c].Values = vals
	}

	return cols, nil
}
