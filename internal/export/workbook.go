package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/lms-points/internal/models"
	"github.com/Spok95/lms-points/internal/points"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]any
}

type Workbook struct {
	File *excelize.File
}

func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if err := f.SetSheetRow(s.Title, "A1", &s.Header); err != nil {
			return nil, fmt.Errorf("header %s: %w", s.Title, err)
		}
		for r, row := range s.Rows {
			cell := fmt.Sprintf("A%d", r+2)
			if err := f.SetSheetRow(s.Title, cell, &row); err != nil {
				return nil, fmt.Errorf("row %s: %w", cell, err)
			}
		}
		if err := ApplyDefaultExcelFormatting(f, s.Title); err != nil {
			return nil, fmt.Errorf("format %s: %w", s.Title, err)
		}
	}
	return &Workbook{File: f}, nil
}

func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.File.WriteTo(out)
}

func (w *Workbook) Close() error { return w.File.Close() }

// Ledger: история начислений и разбивка итога по категориям.
func Ledger(st *points.Stats) (*Workbook, error) {
	history := SheetSpec{
		Title:  "Ledger",
		Header: []string{"Date", "Category", "Activity", "Points"},
	}
	for _, e := range st.Ledger {
		history.Rows = append(history.Rows, []any{
			e.At.Format("2006-01-02 15:04"), string(e.Category), e.Title, e.Points,
		})
	}

	b := st.Breakdown
	summary := SheetSpec{
		Title:  "Summary",
		Header: []string{"Category", "Points"},
		Rows: [][]any{
			{string(models.CategoryVideo), b.Video},
			{string(models.CategoryQuiz), b.Quiz},
			{string(models.CategoryChallenge), b.Challenge},
			{string(models.CategoryAttendance), b.Attendance},
			{"Total", b.Total},
		},
	}
	return NewWorkbook([]SheetSpec{history, summary})
}

// Leaderboard: ученики по убыванию сохранённых баллов; строки уже отсортированы.
func Leaderboard(rows []models.StudentPoints) (*Workbook, error) {
	sheet := SheetSpec{
		Title:  "Leaderboard",
		Header: []string{"Rank", "Student", "Points"},
	}
	for i, r := range rows {
		sheet.Rows = append(sheet.Rows, []any{i + 1, r.Name, r.Points})
	}
	return NewWorkbook([]SheetSpec{sheet})
}
