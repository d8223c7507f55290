package analyses

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const historySheet = "History"

// ExportContentType is the media type of WriteHistory output.
const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const jobDescriptionPreview = 200

// WriteHistory renders saved analyses as an XLSX workbook, one row each.
func WriteHistory(w io.Writer, items []Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	f.SetColWidth(historySheet, "A", "A", 20)
	f.SetColWidth(historySheet, "B", "B", 30)
	f.SetColWidth(historySheet, "C", "C", 60)
	f.SetColWidth(historySheet, "D", "E", 18)
	f.SetColWidth(historySheet, "F", "G", 40)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	header := []any{"Date", "Resume", "Job Description", "Match Score", "Status", "Matching Skills", "Missing Skills"}
	if err := f.SetSheetRow(historySheet, "A1", &header); err != nil {
		return err
	}
	f.SetCellStyle(historySheet, "A1", "G1", headerStyle)

	for i, a := range items {
		row := []any{
			a.CreatedAt.Format("2006-01-02 15:04"),
			a.ResumeFileName,
			preview(a.JobDescription),
			"",
			a.Status,
			"",
			"",
		}
		if a.MatchScore != nil {
			row[3] = *a.MatchScore
		}
		if a.Result != nil {
			row[4] = a.Result.Status
			row[5] = strings.Join(a.Result.MatchingSkills, ", ")
			row[6] = strings.Join(a.Result.MissingSkills, ", ")
		}
		if err := f.SetSheetRow(historySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= jobDescriptionPreview {
		return s
	}
	return string(r[:jobDescriptionPreview]) + "…"
}
