// Package export encodes flattened answer rows as downloadable spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/foodsurvey/internal/domain"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a query value to a Format. Empty means XLSX.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename names a download generated at t.
func (f Format) Filename(t time.Time) string {
	return "respuestas-" + t.UTC().Format("20060102-150405") + "." + string(f)
}

const (
	sheetName  = "Respuestas"
	timeLayout = "2006-01-02 15:04:05"
)

var header = []string{
	"DNI", "Apellido", "Alimento", "Categoría", "Cantidad",
	"Gramos", "Frecuencia", "Observaciones", "Fecha",
}

// Write encodes rows in format f.
func Write(w io.Writer, f Format, rows []*domain.AnswerRow) error {
	if f == FormatCSV {
		return WriteCSV(w, rows)
	}
	return WriteXLSX(w, rows)
}

// WriteXLSX writes a single-sheet workbook with a header row followed by one
// row per answer. Grams cells are left blank when unknown.
func WriteXLSX(w io.Writer, rows []*domain.AnswerRow) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		var grams interface{}
		if r.Grams != nil {
			grams = *r.Grams
		}
		values := []interface{}{
			r.RespondentDNI, r.RespondentName, r.FoodName, r.CategoryName, r.Quantity,
			grams, r.Frequency, r.Observations, r.CreatedAt.UTC().Format(timeLayout),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes the same columns as WriteXLSX as comma separated values.
func WriteCSV(w io.Writer, rows []*domain.AnswerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		grams := ""
		if r.Grams != nil {
			grams = strconv.FormatFloat(*r.Grams, 'f', -1, 64)
		}
		record := []string{
			r.RespondentDNI, r.RespondentName, r.FoodName, r.CategoryName, r.Quantity,
			grams, r.Frequency, r.Observations, r.CreatedAt.UTC().Format(timeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

