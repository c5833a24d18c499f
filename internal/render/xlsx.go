package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	defaults "github.com/xtxerr/polarwarp/config"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/report"
)

const maxSheetName = 31

// WriteXLSX exports tables to a workbook with one sheet per table. Numeric
// cells keep their type; undefined rates are written as the marker string.
func WriteXLSX(path string, tables []report.Table) error {
	if len(tables) == 0 {
		return errors.Wrap(errors.ErrNoRecords, "no tables to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i := range tables {
		t := &tables[i]
		name := SheetName(t, used)

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		if err := writeSheet(f, name, t); err != nil {
			return errors.Wrapf(err, "sheet %s", name)
		}
	}

	f.SetActiveSheet(0)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *report.Table) error {
	header := make([]interface{}, 0, len(ExportHeader)-2)
	for _, h := range ExportHeader[2:] {
		header = append(header, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i := range t.Rows {
		r := &t.Rows[i]
		values := []interface{}{
			r.Op, r.Bucket, r.BucketNum, r.Endpoint, r.Client, r.Summary,
			r.Mean, r.Median, r.P90, r.P95, r.P99, r.Max, r.AvgObjectKiB,
			cellRate(r.OpsPerSec), cellRate(r.MiBPerSec),
			r.Count, r.Threads, r.Runtime,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	total := []interface{}{"TOTAL", "", "", "", "", "", "", "", "", "", "", "", "", cellRate(t.Total.OpsPerSec), "", t.Total.Ops, "", t.Total.Runtime}
	cell, err := excelize.CoordinatesToCellName(1, len(t.Rows)+3)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &total)
}

func cellRate(v *float64) interface{} {
	if v == nil {
		return defaults.UndefinedMarker
	}
	return *v
}

// SheetName derives a unique worksheet name from a table: the file base name
// and the dimension, cut to the 31 characters excel allows.
func SheetName(t *report.Table, used map[string]bool) string {
	base := filepath.Base(t.Source)
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, base)

	suffix := "-" + string(t.Dim)
	name := truncate(base, maxSheetName-len(suffix)) + suffix

	for n := 2; used[name]; n++ {
		tag := fmt.Sprintf("~%d", n)
		name = truncate(base, maxSheetName-len(suffix)-len(tag)) + tag + suffix
	}
	used[name] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
