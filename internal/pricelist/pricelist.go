// Package pricelist parses supplier motor price lists from XLSX workbooks
// and loads them into the store as effective-dated price rows. Suppliers
// issue a whole list at once, so one import carries one effective date.
package pricelist

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Options configures which sheet of the workbook holds the price list.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// Row is one parsed price list line.
type Row struct {
	MotorID       int64
	Supplier      string
	MotorRange    string
	RatedOutputKW float64
	Poles         int
	SpeedRPM      int
	FrameSize     string
	FlangePrice   *float64
	FootPrice     *float64
}

// Recognised header names, lowercased. Suppliers are not consistent about
// spelling, so each column accepts a few variants.
var headerAliases = map[string][]string{
	"motor_id": {"motor_id", "motor id", "id"},
	"supplier": {"supplier", "supplier_name", "supplier name"},
	"range":    {"range", "motor_range", "motor range", "series"},
	"kw":       {"kw", "rated_output", "rated output", "output kw", "rated kw"},
	"poles":    {"poles", "pole", "no of poles"},
	"rpm":      {"rpm", "speed", "speed_rpm", "speed rpm"},
	"frame":    {"frame", "frame_size", "frame size"},
	"flange":   {"flange", "flange_price", "flange price", "b5"},
	"foot":     {"foot", "foot_price", "foot price", "b3"},
}

// ParseFile reads a price list workbook. The first row must be a header row
// naming at least motor_id, supplier, kw and poles; flange and foot price
// columns are each optional but every data row needs at least one price.
func ParseFile(path string, opts Options) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pricelist: open %s", path)
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("pricelist: sheet is empty")
	}

	cols, err := resolveColumns(sheet.Rows[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, raw := range sheet.Rows[1:] {
		cells := cellStrings(raw)
		if blank(cells) {
			continue
		}
		row, err := parseRow(cells, cols)
		if err != nil {
			return nil, eris.Wrapf(err, "pricelist: row %d", i+2)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("pricelist: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("pricelist: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

// resolveColumns maps logical column names to cell indexes from the header
// row.
func resolveColumns(header *xlsx.Row) (map[string]int, error) {
	cols := map[string]int{}
	for i, cell := range header.Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		for key, aliases := range headerAliases {
			for _, alias := range aliases {
				if name == alias {
					cols[key] = i
				}
			}
		}
	}
	for _, required := range []string{"motor_id", "supplier", "kw", "poles"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("pricelist: header is missing a %s column", required)
		}
	}
	if _, hasFlange := cols["flange"]; !hasFlange {
		if _, hasFoot := cols["foot"]; !hasFoot {
			return nil, eris.New("pricelist: header has neither a flange nor a foot price column")
		}
	}
	return cols, nil
}

func parseRow(cells []string, cols map[string]int) (Row, error) {
	var row Row
	var err error

	if row.MotorID, err = strconv.ParseInt(cellAt(cells, cols, "motor_id"), 10, 64); err != nil {
		return Row{}, eris.Wrap(err, "motor_id")
	}
	row.Supplier = cellAt(cells, cols, "supplier")
	if row.Supplier == "" {
		return Row{}, eris.New("supplier is empty")
	}
	if row.RatedOutputKW, err = strconv.ParseFloat(cellAt(cells, cols, "kw"), 64); err != nil {
		return Row{}, eris.Wrap(err, "kw")
	}
	if row.Poles, err = strconv.Atoi(cellAt(cells, cols, "poles")); err != nil {
		return Row{}, eris.Wrap(err, "poles")
	}

	row.MotorRange = cellAt(cells, cols, "range")
	row.FrameSize = cellAt(cells, cols, "frame")
	if s := cellAt(cells, cols, "rpm"); s != "" {
		if row.SpeedRPM, err = strconv.Atoi(s); err != nil {
			return Row{}, eris.Wrap(err, "rpm")
		}
	}

	if row.FlangePrice, err = optionalPrice(cells, cols, "flange"); err != nil {
		return Row{}, err
	}
	if row.FootPrice, err = optionalPrice(cells, cols, "foot"); err != nil {
		return Row{}, err
	}
	if row.FlangePrice == nil && row.FootPrice == nil {
		return Row{}, eris.New("row has neither flange nor foot price")
	}
	return row, nil
}

func optionalPrice(cells []string, cols map[string]int, key string) (*float64, error) {
	s := cellAt(cells, cols, key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil, eris.Wrap(err, key)
	}
	if v < 0 {
		return nil, eris.Errorf("%s price %v is negative", key, v)
	}
	return &v, nil
}

func cellAt(cells []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func cellStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
