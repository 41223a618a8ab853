package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 10
	maxColWidth = 60
)

// ApplyDefaultFormatting: жирная шапка, автофильтр по первой строке,
// ширина колонок по самому длинному значению.
func ApplyDefaultFormatting(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}
	last := columnName(cols)

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", last+"1", style)
	}
	if err := f.AutoFilter(sheet, "A1:"+last+"1", nil); err != nil {
		return fmt.Errorf("auto filter: %w", err)
	}

	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = minColWidth
	}
	for rIdx, row := range rows {
		for c, v := range row {
			// кириллица шире латиницы
			w := float64(utf8.RuneCountInString(v)) * 1.1
			if rIdx == 0 {
				w += 1.5
			}
			widths[c] = min(max(widths[c], w), maxColWidth)
		}
	}
	for i, w := range widths {
		col := columnName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

// columnName: 1 -> A, 27 -> AA.
func columnName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}
