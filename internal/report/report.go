// Package report renders staff performance as a printable PDF.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

const dateLayout = "2006-01-02"

var tierFill = map[scoring.Color][3]int{
	scoring.ColorGreen:  {198, 239, 206},
	scoring.ColorYellow: {255, 235, 156},
	scoring.ColorRed:    {255, 199, 206},
}

var windowLabels = map[scoring.Window]string{
	scoring.WindowWeekly:    "Weekly",
	scoring.WindowMonthly:   "Monthly",
	scoring.WindowTrimester: "Trimester",
	scoring.WindowSixMonth:  "Six months",
}

// categoryLabel turns shelf_cleanliness into Shelf Cleanliness.
func categoryLabel(c scoring.Category) string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Render writes a one-page report for one staff member.
func Render(w io.Writer, perf service.StaffPerformance, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Performance report: "+perf.Staff.Name, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Staff Performance Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Staff: %s (%s)", perf.Staff.Name, perf.Staff.StaffNumber))
	pdf.Ln(7)
	if perf.Staff.Position != "" {
		pdf.Cell(0, 8, "Position: "+perf.Staff.Position)
		pdf.Ln(7)
	}
	label, ok := windowLabels[perf.Window]
	if !ok {
		label = string(perf.Window)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Window: %s, %s to %s", label, perf.Start.Format(dateLayout), perf.End.Format(dateLayout)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Ratings: %d", perf.Count))
	pdf.Ln(10)

	fill := tierFill[perf.Color]
	pdf.SetFillColor(fill[0], fill[1], fill[2])
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Total average: %d%%   Tier: %s   Trend: %s",
		perf.TotalAverage, perf.Tier, perf.Trend), "1", 1, "L", true, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(90, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Average", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Trend", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	for _, c := range scoring.Categories() {
		avg := perf.CategoryAverages[c]
		rowFill := tierFill[scoring.Classify(float64(avg)).Color()]
		pdf.SetFillColor(rowFill[0], rowFill[1], rowFill[2])
		pdf.CellFormat(90, 8, categoryLabel(c), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%d%%", avg), "1", 0, "C", perf.Rated(), 0, "")
		pdf.CellFormat(40, 8, string(perf.CategoryTrends[c]), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+generatedAt.UTC().Format(time.RFC1123))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Filename is the download name for a staff report.
func Filename(perf service.StaffPerformance) string {
	return fmt.Sprintf("performance-%s-%s-%s.pdf", perf.Staff.StaffNumber, perf.Window, perf.End.Format(dateLayout))
}
