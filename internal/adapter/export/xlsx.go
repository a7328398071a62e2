package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cwygoda/recipequeue/internal/adapter/sqlite"
)

const sheet = "History"

var headers = []string{"Finished", "Job", "Kind", "Title", "Status", "Message", "Images"}

// OutcomesXLSX renders recorded outcomes as a single-sheet workbook.
func OutcomesXLSX(outcomes []sqlite.Outcome) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, o := range outcomes {
		row := []any{
			o.FinishedAt.UTC().Format(time.RFC3339),
			o.JobID,
			string(o.Kind),
			truncate(o.Title, 200),
			string(o.Status),
			o.Message,
			o.ImageCount,
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 22) // finished
	_ = f.SetColWidth(sheet, "B", "B", 26) // job id
	_ = f.SetColWidth(sheet, "D", "D", 48) // title
	_ = f.SetColWidth(sheet, "F", "F", 20) // message

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
