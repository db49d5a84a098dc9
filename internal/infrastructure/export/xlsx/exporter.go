// Package xlsx renders finished trips as spreadsheets.
package xlsx

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

const (
	SheetItinerary = "Itinerary"
	SheetBudget    = "Budget"
	SheetNotes     = "Agent Notes"

	moneyFormat = 4 // #,##0.00
)

var itineraryHeader = []any{"Day", "Time", "Title", "Address", "Est. Cost", "Notes", "Link"}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(ctx context.Context, trip *domain.Trip) ([]byte, error) {
	if trip == nil || trip.Itinerary == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "export trip", fmt.Errorf("trip has no itinerary"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetItinerary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeItinerary(f, styles, trip.Itinerary.Items); err != nil {
		return nil, err
	}
	if err := writeBudget(f, styles, trip); err != nil {
		return nil, err
	}
	if err := writeNotes(f, styles, trip); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type styles struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return styles{}, fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyFormat})
	if err != nil {
		return styles{}, fmt.Errorf("money style: %w", err)
	}
	return styles{header: header, money: money}, nil
}

func writeItinerary(f *excelize.File, st styles, items []domain.ItineraryItem) error {
	if err := writeRow(f, SheetItinerary, 1, itineraryHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetItinerary, "A1", "G1", st.header); err != nil {
		return fmt.Errorf("style itinerary header: %w", err)
	}
	for i, item := range items {
		row := i + 2
		values := []any{item.Day.String(), item.Time, item.Title, item.Address, item.EstCost, item.Notes, item.Link}
		if err := writeRow(f, SheetItinerary, row, values); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(5, row)
		if err := f.SetCellStyle(SheetItinerary, cell, cell, st.money); err != nil {
			return fmt.Errorf("style cost cell: %w", err)
		}
	}
	widths := map[string]float64{"A": 12, "B": 20, "C": 40, "D": 36, "E": 12, "F": 60, "G": 40}
	for col, width := range widths {
		if err := f.SetColWidth(SheetItinerary, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return f.SetPanes(SheetItinerary, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeBudget(f *excelize.File, st styles, trip *domain.Trip) error {
	if _, err := f.NewSheet(SheetBudget); err != nil {
		return fmt.Errorf("create budget sheet: %w", err)
	}
	b := trip.Itinerary.BudgetBreakdown
	rows := [][]any{
		{"Category", "Amount"},
		{"Transport", b.Transport},
		{"Lodging", b.Lodging},
		{"Activities", b.Activities},
		{"Total Spent", b.TotalSpent},
		{"Remaining", b.Remaining},
		{"Budget Total", trip.Request.BudgetTotal},
	}
	for i, values := range rows {
		if err := writeRow(f, SheetBudget, i+1, values); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetBudget, "A1", "B1", st.header); err != nil {
		return fmt.Errorf("style budget header: %w", err)
	}
	if err := f.SetCellStyle(SheetBudget, "B2", fmt.Sprintf("B%d", len(rows)), st.money); err != nil {
		return fmt.Errorf("style budget amounts: %w", err)
	}
	return f.SetColWidth(SheetBudget, "A", "A", 16)
}

func writeNotes(f *excelize.File, st styles, trip *domain.Trip) error {
	if _, err := f.NewSheet(SheetNotes); err != nil {
		return fmt.Errorf("create notes sheet: %w", err)
	}
	row := 1
	section := func(title string, lines []string) error {
		if err := writeRow(f, SheetNotes, row, []any{title}); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStyle(SheetNotes, cell, cell, st.header); err != nil {
			return fmt.Errorf("style notes header: %w", err)
		}
		row++
		for _, line := range lines {
			if err := writeRow(f, SheetNotes, row, []any{line}); err != nil {
				return err
			}
			row++
		}
		row++
		return nil
	}

	if err := section("Agent Decisions", trip.Itinerary.AgentDecisions); err != nil {
		return err
	}
	if err := section("Rationales", trip.Itinerary.Rationales); err != nil {
		return err
	}
	if len(trip.Issues) > 0 {
		if err := section("Issues", trip.Issues); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetNotes, "A", "A", 100)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
