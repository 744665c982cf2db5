package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"
	"gopairs/ports"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ReaderConfig controls how a sheet is turned into a price table
type ReaderConfig struct {
	// Sheet names the XLSX sheet to read. Empty means the first sheet.
	Sheet string
	// IndexColumn drops the leading column (usually dates) before parsing
	IndexColumn bool
}

// DataReader reads a price table from an Excel or CSV file. The header row
// holds the instrument ids; every following row is one time step.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
	log      logrus.FieldLogger
}

var _ ports.TableSource = (*DataReader)(nil)

// NewDataReader creates a reader for an .xlsx or .csv file
func NewDataReader(filePath string, config ReaderConfig, logger logrus.FieldLogger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		config:   config,
		log:      logger.WithField("component", "data_reader"),
	}
}

// ReadTable reads and validates the whole file
func (r *DataReader) ReadTable(ctx context.Context) (*pricetable.Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewInvalidInputError("file", fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"file":        r.filePath,
		"rows":        len(rows),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("sheet read")

	table, err := BuildTable(ctx, rows, r.config.IndexColumn)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"instruments":  table.Width(),
		"observations": table.Len(),
	}).Info("price table loaded")
	return table, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, core.NewInvalidInputError("sheet", "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, core.NewInvalidInputError("sheet", fmt.Sprintf("failed to read %s: %v", sheet, err))
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return readCSV(file)
}

// ParseCSV reads a CSV document into a price table
func ParseCSV(ctx context.Context, in io.Reader, indexColumn bool) (*pricetable.Table, error) {
	rows, err := readCSV(in)
	if err != nil {
		return nil, err
	}
	return BuildTable(ctx, rows, indexColumn)
}

func readCSV(in io.Reader) ([][]string, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewInvalidInputError("csv", err.Error())
	}
	return rows, nil
}

// BuildTable converts raw rows into a validated table. rows[0] is the header.
// A missing, empty or non-numeric cell fails with an invalid input error
// naming the cell in spreadsheet notation.
func BuildTable(ctx context.Context, rows [][]string, indexColumn bool) (*pricetable.Table, error) {
	if len(rows) < 2 {
		return nil, core.NewInvalidInputError("sheet", "must have a header row and at least one data row")
	}

	first := 0
	if indexColumn {
		first = 1
	}
	header := rows[0]
	if len(header) <= first {
		return nil, core.NewInvalidInputError("sheet", "header row has no instrument columns")
	}

	ids := make([]core.InstrumentID, 0, len(header)-first)
	for j := first; j < len(header); j++ {
		id, err := core.ParseInstrumentID(header[j])
		if err != nil {
			return nil, core.NewInvalidInputError(cellName(j, 0), "instrument id is empty")
		}
		ids = append(ids, id)
	}

	columns := make([][]float64, len(ids))
	for c := range columns {
		columns[c] = make([]float64, len(rows)-1)
	}
	for i := 1; i < len(rows); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := rows[i]
		for c := range ids {
			j := first + c
			if j >= len(row) {
				return nil, core.NewInvalidInputError(cellName(j, i), "cell is missing")
			}
			v, err := parseCell(row[j])
			if err != nil {
				return nil, core.NewInvalidInputError(cellName(j, i), err.Error())
			}
			columns[c][i-1] = v
		}
	}

	b := pricetable.NewBuilder()
	for c, id := range ids {
		b.AddColumn(id, columns[c])
	}
	return b.Build()
}

func parseCell(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("cell is empty")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row+1, col+1)
	}
	return name
}
