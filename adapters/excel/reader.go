package excel

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/internal"

	"github.com/xuri/excelize/v2"
)

// File types understood by DataReader
const (
	FileTypeXLSX = "xlsx"
	FileTypeCSV  = "csv"
	FileTypeTSV  = "tsv"
	FileTypeGCT  = "gct"
)

// DataReader reads genes × samples expression matrices from Excel, CSV, TSV
// and GCT files. The first column holds gene identifiers and the header row
// holds sample names.
type DataReader struct {
	config ReaderConfig
	logger *internal.Logger
}

// NewDataReader creates a new data reader
func NewDataReader(config ReaderConfig, logger *internal.Logger) *DataReader {
	if config.Sheet == "" {
		config.Sheet = DefaultReaderConfig().Sheet
	}
	return &DataReader{config: config, logger: logger.OrDefault().With("excel")}
}

// DetectFileType maps a file extension onto a supported file type
func DetectFileType(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return FileTypeXLSX, nil
	case ".csv":
		return FileTypeCSV, nil
	case ".tsv", ".txt", ".tab":
		return FileTypeTSV, nil
	case ".gct":
		return FileTypeGCT, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// ReadMatrix reads an expression matrix from path
func (r *DataReader) ReadMatrix(ctx context.Context, path string) (*expression.Matrix, error) {
	fileType, err := DetectFileType(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(fileType), path)
	}

	start := time.Now()
	var rows [][]string
	skip := r.config.SkipColumns
	switch fileType {
	case FileTypeXLSX:
		rows, err = r.readExcelRows(path)
	case FileTypeCSV:
		rows, err = readDelimited(path, ',')
	case FileTypeTSV:
		rows, err = readDelimited(path, '\t')
	case FileTypeGCT:
		rows, err = readGCT(path)
		skip = 1
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := processRows(rows, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	genes, samples := m.Dims()
	r.logger.Debug("read %s file %s in %.2fms (%d genes, %d samples)",
		strings.ToUpper(fileType), filepath.Base(path), float64(time.Since(start).Nanoseconds())/1e6, genes, samples)
	return m, nil
}

// readExcelRows reads all rows of the configured sheet
func (r *DataReader) readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.config.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.config.Sheet, err)
	}
	return rows, nil
}

func readDelimited(path string, sep rune) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return rows, nil
}

// readGCT reads a GCT 1.2 file: a version line, a dimensions line, then a
// Name/Description header followed by one row per gene.
func readGCT(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCT file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<26)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read GCT file: %w", err)
	}
	if len(lines) < 3 || !strings.HasPrefix(lines[0], "#1.") {
		return nil, core.NewInputShapeError("not a GCT file: missing version line")
	}

	dims := strings.Fields(lines[1])
	if len(dims) < 2 {
		return nil, core.NewInputShapeError("GCT dimensions line is malformed")
	}
	nRows, err1 := strconv.Atoi(dims[0])
	nCols, err2 := strconv.Atoi(dims[1])
	if err1 != nil || err2 != nil {
		return nil, core.NewInputShapeError("GCT dimensions line is malformed")
	}

	rows := make([][]string, 0, len(lines)-2)
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if len(rows)-1 != nRows || len(rows[0])-2 != nCols {
		return nil, core.NewInputShapeError("GCT declares %d×%d but holds %d×%d",
			nRows, nCols, len(rows)-1, len(rows[0])-2)
	}
	return rows, nil
}

// processRows converts raw string rows into an expression matrix. Column 0 is
// the gene identifier and skip annotation columns follow it.
func processRows(rows [][]string, skip int) (*expression.Matrix, error) {
	if len(rows) < 2 {
		return nil, core.NewInputShapeError("file must have a header row and at least one gene row")
	}

	header := rows[0]
	first := 1 + skip
	if len(header) <= first {
		return nil, core.ErrNoSamples
	}
	samples := make([]string, 0, len(header)-first)
	for _, h := range header[first:] {
		samples = append(samples, strings.TrimSpace(h))
	}

	genes := make([]string, 0, len(rows)-1)
	values := make([]float64, 0, (len(rows)-1)*len(samples))
	for i, row := range rows[1:] {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		gene := strings.TrimSpace(row[0])
		if gene == "" {
			return nil, core.NewInputShapeError("row %d has no gene identifier", i+2)
		}
		if len(row) < first+len(samples) {
			return nil, core.NewInputShapeError("row %d (%s) has %d columns, expected %d", i+2, gene, len(row), first+len(samples))
		}
		for j := range samples {
			cell := strings.TrimSpace(row[first+j])
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, core.NewInputShapeError("row %d (%s), sample %s: %q is not numeric", i+2, gene, samples[j], cell)
			}
			values = append(values, v)
		}
		genes = append(genes, gene)
	}
	return expression.NewMatrix(genes, samples, values)
}
