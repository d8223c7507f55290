package interview

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Interview"

// ReportContentType is the media type of WriteReport output.
const ReportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteReport renders the session as an XLSX workbook: one row per question
// with the answer, score and feedback, followed by a summary row.
func WriteReport(w io.Writer, s Session) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	f.SetColWidth(reportSheet, "A", "A", 6)
	f.SetColWidth(reportSheet, "B", "C", 60)
	f.SetColWidth(reportSheet, "D", "D", 8)
	f.SetColWidth(reportSheet, "E", "E", 80)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(reportSheet, "A1", &[]any{"#", "Question", "Answer", "Score", "Feedback"}); err != nil {
		return err
	}
	f.SetCellStyle(reportSheet, "A1", "E1", headerStyle)

	row := 2
	for i, q := range s.Questions {
		values := []any{i + 1, q, "", "", ""}
		for _, a := range s.Answers {
			if a.QuestionIndex == i {
				values[2] = a.Answer
				values[3] = a.Score
				values[4] = a.Feedback
				break
			}
		}
		if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		f.SetCellStyle(reportSheet, fmt.Sprintf("B%d", row), fmt.Sprintf("E%d", row), wrapStyle)
		row++
	}

	res := s.Results()
	summary := []any{"", "Overall", fmt.Sprintf("%d of %d answered", res.Answered, res.Total), res.OverallScore, res.Status}
	if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &summary); err != nil {
		return err
	}
	f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), boldStyle)

	return f.Write(w)
}
