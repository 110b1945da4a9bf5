package sink

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

const DefaultSheet = "hierarchy"

// XLSXWriter writes a workbook with one sheet: a header row, then one row per node.
type XLSXWriter struct {
	Sheet string
}

func (x XLSXWriter) Write(w io.Writer, rel *hierarchy.Relation) (err error) {
	sheet := x.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close workbook")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.Wrap(err, "open stream writer")
	}
	header := make([]interface{}, len(hierarchy.Columns))
	for i, c := range hierarchy.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, n := range rows(rel) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		rec := n.Record()
		vals := make([]interface{}, len(rec))
		for j, v := range rec {
			vals[j] = v
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return errors.Wrapf(err, "write row %s", n.ID)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.Wrap(err, "flush sheet")
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
