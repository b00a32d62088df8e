package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"goviper/domain/activity"
	"goviper/domain/expression"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

// Table is one labelled matrix written as a sheet or a delimited file
type Table struct {
	Name    string
	Corner  string
	Rows    []string
	Columns []string
	Values  mat.Matrix
}

// RunTables returns the NES table of a run followed by ES for analytic runs
// or SD for bootstrap runs. Zero-row runs yield header-only tables.
func RunTables(run *activity.Run) []Table {
	regs, samples := run.Regulators(), run.Samples()
	table := func(name string, m *mat.Dense) Table {
		return Table{Name: name, Corner: "regulator", Rows: regs, Columns: samples, Values: m}
	}
	if run.Bootstrap != nil {
		return []Table{table("NES", run.Bootstrap.NES), table("SD", run.Bootstrap.SD)}
	}
	return []Table{table("NES", run.Result.NES), table("ES", run.Result.ES)}
}

// MatrixTable wraps an expression matrix
func MatrixTable(name string, m *expression.Matrix) Table {
	return Table{Name: name, Corner: "gene", Rows: m.Genes(), Columns: m.Samples(), Values: m.Dense()}
}

// WriteTables writes tables to path. Excel files get one sheet per table;
// delimited files only hold the first table.
func WriteTables(path string, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to write")
	}
	fileType, err := DetectFileType(path)
	if err != nil {
		return err
	}
	switch fileType {
	case FileTypeXLSX:
		return writeWorkbook(path, tables)
	case FileTypeCSV:
		return writeDelimited(path, ',', tables[0])
	case FileTypeTSV:
		return writeDelimited(path, '\t', tables[0])
	default:
		return fmt.Errorf("writing %s files is not supported", fileType)
	}
}

func writeWorkbook(path string, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for k, t := range tables {
		if k == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return err
		}

		header := make([]interface{}, 0, len(t.Columns)+1)
		header = append(header, t.Corner)
		for _, c := range t.Columns {
			header = append(header, c)
		}
		if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
			return err
		}
		for i, label := range t.Rows {
			row := make([]interface{}, 0, len(t.Columns)+1)
			row = append(row, label)
			for j := range t.Columns {
				row = append(row, t.Values.At(i, j))
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func writeDelimited(path string, sep rune, t Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = sep
	if err := w.Write(append([]string{t.Corner}, t.Columns...)); err != nil {
		return err
	}
	record := make([]string, len(t.Columns)+1)
	for i, label := range t.Rows {
		record[0] = label
		for j := range t.Columns {
			record[j+1] = strconv.FormatFloat(t.Values.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Close()
}
