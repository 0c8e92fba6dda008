// Package parsers turns the two spreadsheet exports into normalized rows.
//
// Loading is positional: a workbook sheet or CSV file is read into a
// models.RawTable with no header assumed, because both exports carry a
// preamble above their header row. The layout-specific preparers then
// discard the preamble, promote the header, resolve the columns they need
// and emit one models.NormalizedRow per row carrying a PartnerPin.
//
// Supported inputs:
//   - .xlsx, .xlsm, .xltx, .xltm workbooks (first sheet by default)
//   - .xls legacy workbooks
//   - .csv text exports, UTF-8 or Windows-1252
package parsers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"
)

// Format identifies a supported input file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat maps a file name to its input format by extension.
func DetectFormat(filePath string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, true
	case ".xls":
		return FormatXLS, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// Loader reads spreadsheet files into raw tables.
type Loader struct {
	config *LoadConfig
	logger logger.Logger
}

// NewLoader creates a new Loader with the given configuration
func NewLoader(config *LoadConfig) (*Loader, error) {
	if config == nil {
		config = DefaultLoadConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "load", config, err)
	}

	log := logger.WithComponent("loader")
	log.WithFields(logger.Fields{
		"sheet_index":        config.SheetIndex,
		"delimiter":          string(config.Delimiter),
		"decode_legacy_text": config.DecodeLegacyText,
	}).Debug("Created loader")

	return &Loader{
		config: config,
		logger: log,
	}, nil
}

// Load reads filePath positionally. The format is chosen by extension.
func (l *Loader) Load(ctx context.Context, filePath string) (*models.RawTable, error) {
	format, ok := DetectFormat(filePath)
	if !ok {
		return nil, errors.FileError(errors.CodeUnsupportedFormat, filePath, nil).
			WithContext("extension", filepath.Ext(filePath))
	}
	if err := l.checkFile(filePath); err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"format":    format,
	}).Debug("Loading file")

	var (
		table *models.RawTable
		err   error
	)
	switch format {
	case FormatXLSX:
		table, err = l.loadXLSX(ctx, filePath)
	case FormatXLS:
		table, err = l.loadXLS(ctx, filePath)
	default:
		table, err = l.loadCSV(ctx, filePath)
	}
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"rows":      table.NumRows(),
		"width":     table.Width(),
	}).Info("Loaded file")
	return table, nil
}

func (l *Loader) checkFile(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		l.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open input file")
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeUnsupportedFormat, filePath, fmt.Errorf("path is a directory"))
	}
	return nil
}

func (l *Loader) loadXLSX(ctx context.Context, filePath string) (*models.RawTable, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if l.config.SheetIndex >= len(sheets) {
		return nil, errors.FileError(errors.CodeInvalidFormat, filePath,
			fmt.Errorf("workbook has %d sheets, sheet index %d requested", len(sheets), l.config.SheetIndex))
	}
	sheet := sheets[l.config.SheetIndex]

	rawRows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	table := &models.RawTable{Source: filePath, Rows: make([]models.Row, len(rawRows))}
	for i, rawRow := range rawRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make(models.Row, len(rawRow))
		for j, value := range rawRow {
			if value == "" {
				continue
			}
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, errors.FileError(errors.CodeInvalidFormat, filePath, err)
			}
			cellType, err := f.GetCellType(sheet, cellRef)
			if err != nil {
				return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
			}
			row[j] = xlsxCell(cellType, value)
		}
		table.Rows[i] = row
	}
	return table, nil
}

// xlsxCell keeps string cells as text and reads every other stored value as
// a number when it parses as one.
func xlsxCell(cellType excelize.CellType, value string) models.Cell {
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeBool:
		return models.TextCell(value)
	default:
		return inferCell(value)
	}
}

func inferCell(value string) models.Cell {
	if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return models.NumberCell(v)
	}
	return models.TextCell(value)
}

func (l *Loader) loadXLS(ctx context.Context, filePath string) (*models.RawTable, error) {
	book, err := xls.OpenFile(filePath)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	sheet, err := book.GetSheet(l.config.SheetIndex)
	if err != nil || sheet == nil {
		return nil, errors.FileError(errors.CodeInvalidFormat, filePath,
			fmt.Errorf("sheet index %d not found", l.config.SheetIndex))
	}

	xlsRows := sheet.GetRows()
	table := &models.RawTable{Source: filePath, Rows: make([]models.Row, 0, len(xlsRows))}
	for _, xlsRow := range xlsRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols := xlsRow.GetCols()
		row := make(models.Row, len(cols))
		for j, col := range cols {
			if value := col.GetString(); value != "" {
				row[j] = inferCell(value)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func (l *Loader) loadCSV(ctx context.Context, filePath string) (*models.RawTable, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var input io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		if !l.config.DecodeLegacyText {
			return nil, errors.EncodingError(filePath, firstInvalidLine(data), fmt.Errorf("invalid UTF-8"))
		}
		l.logger.WithField("file_path", filePath).Warn("Input is not UTF-8, decoding as Windows-1252")
		input = transform.NewReader(input, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(input)
	reader.Comma = l.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := &models.RawTable{Source: filePath}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErr := errors.FileError(errors.CodeInvalidFormat, filePath, err)
			if pe, ok := err.(*csv.ParseError); ok {
				parseErr = parseErr.WithContext("line", pe.Line)
			}
			return nil, parseErr
		}
		row := make(models.Row, len(record))
		for j, value := range record {
			row[j] = models.TextCell(value)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func firstInvalidLine(data []byte) int {
	line := 1
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		data = data[size:]
	}
	return line
}
