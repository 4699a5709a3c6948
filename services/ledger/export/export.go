// Package export renders a completed extraction result into the Excel
// workbook handed to the accounting team. The workbook carries three
// sheets: a monthly revenue/cost summary, the full requisition detail,
// and a profit analysis with cumulative and growth figures.
package export

import (
	"fmt"
	"time"
	"unicode/utf8"

	"gwreport-backend/lib/timezone"
	"gwreport-backend/services/ledger"

	"github.com/xuri/excelize/v2"
)

const (
	sheetMonthly  = "월별요약"
	sheetDetailed = "상세내역"
	sheetAnalysis = "손익분석"

	headerColor = "366092"
	numFmt      = "#,##0"
)

// DefaultFilename names the workbook after the moment it was produced,
// e.g. 매출매입현황_20240131_153000.xlsx.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("매출매입현황_%s.xlsx", now.In(timezone.Location).Format("20060102_150405"))
}

// WriteFile assembles the workbook in memory and saves it to path. The
// file is only written once every sheet has been populated, so a
// failure part way through leaves no partial workbook behind.
func WriteFile(path string, result ledger.Result) error {
	f, err := build(result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

type styles struct {
	title  int
	header int
	number int
}

func build(result ledger.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	err = writeMonthly(f, st, result.Summaries)
	if err != nil {
		return nil, err
	}
	err = writeDetailed(f, st, result.Records)
	if err != nil {
		return nil, err
	}
	err = writeAnalysis(f, st, result.Summaries)
	if err != nil {
		return nil, err
	}

	err = f.DeleteSheet("Sheet1")
	if err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(sheetMonthly)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	return f, nil
}

func newStyles(f *excelize.File) (styles, error) {
	title, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return styles{}, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles{}, err
	}
	custom := numFmt
	number, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	if err != nil {
		return styles{}, err
	}
	return styles{title: title, header: header, number: number}, nil
}

// newSheet creates the sheet with its title cell and header row. Data
// rows start below the header, at headerRow+1.
func newSheet(f *excelize.File, st styles, name, title string, columns []string) (int, error) {
	_, err := f.NewSheet(name)
	if err != nil {
		return 0, err
	}

	err = f.SetCellValue(name, "A1", title)
	if err != nil {
		return 0, err
	}
	err = f.SetCellStyle(name, "A1", "A1", st.title)
	if err != nil {
		return 0, err
	}

	const headerRow = 3
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return 0, err
		}
		err = f.SetCellValue(name, cell, col)
		if err != nil {
			return 0, err
		}
	}
	first, err := excelize.CoordinatesToCellName(1, headerRow)
	if err != nil {
		return 0, err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), headerRow)
	if err != nil {
		return 0, err
	}
	err = f.SetCellStyle(name, first, last, st.header)
	if err != nil {
		return 0, err
	}
	return headerRow + 1, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		err = f.SetCellValue(sheet, cell, v)
		if err != nil {
			return err
		}
	}
	return nil
}

// numberColumns applies the thousands-separator format to amount
// columns over the given data row span.
func numberColumns(f *excelize.File, st styles, sheet string, cols []int, firstRow, lastRow int) error {
	if lastRow < firstRow {
		return nil
	}
	for _, col := range cols {
		first, err := excelize.CoordinatesToCellName(col, firstRow)
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(col, lastRow)
		if err != nil {
			return err
		}
		err = f.SetCellStyle(sheet, first, last, st.number)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeMonthly(f *excelize.File, st styles, summaries []ledger.MonthlySummary) error {
	row, err := newSheet(f, st, sheetMonthly, "월별 매출/매입 현황",
		[]string{"년월", "매출액", "매입액", "손익"})
	if err != nil {
		return err
	}
	firstData := row
	for _, m := range summaries {
		err = setRow(f, sheetMonthly, row, []any{
			yearMonth(m.Year, m.Month), m.Revenue, m.Cost, m.Profit,
		})
		if err != nil {
			return err
		}
		row++
	}
	err = numberColumns(f, st, sheetMonthly, []int{2, 3, 4}, firstData, row-1)
	if err != nil {
		return err
	}
	return autosizeColumns(f, sheetMonthly)
}

func writeDetailed(f *excelize.File, st styles, records []ledger.ValidatedRecord) error {
	row, err := newSheet(f, st, sheetDetailed, "상세 거래 내역",
		[]string{"날짜", "년월", "문서번호", "구분", "공급가액", "상태"})
	if err != nil {
		return err
	}
	firstData := row
	for _, r := range records {
		err = setRow(f, sheetDetailed, row, []any{
			r.ClosedDate.Format("2006-01-02"),
			yearMonth(r.ClosedDate.Year(), r.ClosedDate.Month()),
			r.DocumentID,
			kindLabel(r.Kind),
			r.Amount,
			r.Status,
		})
		if err != nil {
			return err
		}
		row++
	}
	err = numberColumns(f, st, sheetDetailed, []int{5}, firstData, row-1)
	if err != nil {
		return err
	}
	return autosizeColumns(f, sheetDetailed)
}

func writeAnalysis(f *excelize.File, st styles, summaries []ledger.MonthlySummary) error {
	row, err := newSheet(f, st, sheetAnalysis, "손익 분석",
		[]string{"년월", "매출액", "매입액", "손익", "누적손익", "수익률(%)", "손익증감률(%)"})
	if err != nil {
		return err
	}
	firstData := row
	for _, m := range summaries {
		var growth any = "N/A"
		if m.GrowthValid {
			growth = round2(m.Growth * 100)
		}
		err = setRow(f, sheetAnalysis, row, []any{
			yearMonth(m.Year, m.Month),
			m.Revenue,
			m.Cost,
			m.Profit,
			m.CumulativeProfit,
			round2(m.Margin * 100),
			growth,
		})
		if err != nil {
			return err
		}
		row++
	}
	err = numberColumns(f, st, sheetAnalysis, []int{2, 3, 4, 5}, firstData, row-1)
	if err != nil {
		return err
	}
	return autosizeColumns(f, sheetAnalysis)
}

// autosizeColumns widens each column to its longest cell, capped so a
// stray long value cannot blow up the layout.
func autosizeColumns(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	widths := map[int]float64{}
	for _, row := range rows {
		for i, cell := range row {
			w := float64(utf8.RuneCountInString(cell)) + 2
			if w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i, w := range widths {
		if w < 10 {
			w = 10
		}
		if w > 50 {
			w = 50
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		err = f.SetColWidth(sheet, col, col, w)
		if err != nil {
			return err
		}
	}
	return nil
}

func yearMonth(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

func kindLabel(kind ledger.DocumentKind) string {
	switch kind {
	case ledger.KindSales:
		return "매출"
	case ledger.KindPurchase:
		return "매입"
	}
	return "기타"
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
