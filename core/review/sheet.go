package review

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"loraset/model"
)

const sheetName = "Dataset"

var headers = []string{
	"#", "ID", "File", "Duration", "Labeled", "Caption", "BPM", "Key",
	"Time Sig", "Language", "Instrumental", "Lyrics", "Lyrics Diff",
}

// ExportSheet writes one row per sample to an XLSX workbook at path. Captions are
// written composed with the dataset tag; the last column highlights how the LM
// reformatted the sidecar lyrics.
func ExportSheet(path string, meta model.DatasetMetadata, samples []*model.Sample) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Font:      &excelize.Font{Size: 11, Family: "Calibri"},
	})
	if err != nil {
		return fmt.Errorf("create wrap style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)
	_ = f.SetColWidth(sheetName, "C", "C", 28)
	_ = f.SetColWidth(sheetName, "F", "F", 60)
	_ = f.SetColWidth(sheetName, "L", "M", 60)

	for i, s := range samples {
		row := i + 2
		bpm := ""
		if s.BPM != nil {
			bpm = strconv.Itoa(*s.BPM)
		}
		values := []any{
			i, s.ID, s.Filename, s.Duration, s.Labeled, s.FullCaption(meta.TagPosition),
			bpm, s.Keyscale, s.TimeSignature, s.Language, s.IsInstrumental, s.Lyrics,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if runs := richText(SampleDiff(s)); len(runs) > 0 {
			if err := f.SetCellRichText(sheetName, "M"+strconv.Itoa(row), runs); err != nil {
				return fmt.Errorf("write diff row %d: %w", row, err)
			}
		}
	}
	if len(samples) > 0 {
		last := strconv.Itoa(len(samples) + 1)
		_ = f.SetCellStyle(sheetName, "F2", "F"+last, wrapStyle)
		_ = f.SetCellStyle(sheetName, "L2", "M"+last, wrapStyle)
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: meta.Name, Creator: "loraset"}); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %v: %w", path, err, model.ErrIO)
	}
	return nil
}

// richText colours deletions red and insertions green.
func richText(segments []Segment) []excelize.RichTextRun {
	runs := make([]excelize.RichTextRun, 0, len(segments))
	for _, s := range segments {
		font := &excelize.Font{Size: 11, Family: "Calibri", Color: "#000000"}
		switch s.Op {
		case Delete:
			font.Color = "#FF0000"
			font.Strike = true
		case Insert:
			font.Color = "#008000"
		}
		runs = append(runs, excelize.RichTextRun{Text: s.Text, Font: font})
	}
	return runs
}
