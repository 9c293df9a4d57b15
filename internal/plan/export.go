package plan

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// ExportSheet is the name of the single worksheet of an exported plan.
const ExportSheet = "Plan"

// DayNames are the column headings of an exported plan, Monday first.
var DayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

const (
	exportHeaderRow = 3
	exportFirstRow  = 4
)

// ExportXLSX writes the plan as a workbook with one column per day and the
// items of each day in sort order. Completed items are prefixed with a check
// mark and the last row holds the planned minutes per day.
func ExportXLSX(w io.Writer, p Plan, catalog *curriculum.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(ExportSheet, cell, v)
	}

	if err := set(1, 1, p.Title); err != nil {
		return fmt.Errorf("writing title: %w", err)
	}
	period := fmt.Sprintf("%s to %s", p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	if err := set(1, 2, period); err != nil {
		return fmt.Errorf("writing period: %w", err)
	}
	if err := f.SetCellStyle(ExportSheet, "A1", "A1", bold); err != nil {
		return fmt.Errorf("styling title: %w", err)
	}

	rows := make([]int, 7)
	minutes := make([]int, 7)
	for d, name := range DayNames {
		if err := set(d+1, exportHeaderRow, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	items := append([]Item(nil), p.Items...)
	sortItems(items)
	lastRow := exportHeaderRow
	for _, it := range items {
		d := it.DayOfWeek
		row := exportFirstRow + rows[d]
		if err := set(d+1, row, cellText(it, catalog)); err != nil {
			return fmt.Errorf("writing item: %w", err)
		}
		rows[d]++
		minutes[d] += it.DurationMinutes
		lastRow = max(lastRow, row)
	}

	totalRow := lastRow + 2
	for d, m := range minutes {
		if err := set(d+1, totalRow, fmt.Sprintf("Total: %d min", m)); err != nil {
			return fmt.Errorf("writing totals: %w", err)
		}
	}

	lastCell, _ := excelize.CoordinatesToCellName(7, totalRow)
	if err := f.SetCellStyle(ExportSheet, "A4", lastCell, wrap); err != nil {
		return fmt.Errorf("styling items: %w", err)
	}
	if err := f.SetCellStyle(ExportSheet, "A3", "G3", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(ExportSheet, "A", "G", 28); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func cellText(it Item, catalog *curriculum.Catalog) string {
	subject := it.SubjectID
	if s, ok := catalog.Subject(it.SubjectID); ok {
		subject = s.Name
	}
	text := subject
	if it.TopicID != "" {
		topic := it.TopicID
		if t, ok := catalog.Topic(it.TopicID); ok {
			topic = t.Name
		}
		text += ": " + topic
	}
	text += fmt.Sprintf(" (%d min)", it.DurationMinutes)
	if it.Notes != "" {
		text += "\n" + it.Notes
	}
	if it.Completed {
		text = "✓ " + text
	}
	return text
}
