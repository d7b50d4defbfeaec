package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"gig-recommender/internal/common/validation"
)

// Built-in spreadsheet tools. Argument names follow the excel MCP server so
// the same instruction works against either implementation.
const (
	ExcelDescribeSheetsTool = "excel_describe_sheets"
	ExcelReadSheetTool      = "excel_read_sheet"

	// DefaultPageRows is how many rows are read when no range is given.
	DefaultPageRows = 20
)

// ExcelTools returns both built-in spreadsheet tools. defaultPath is used
// when the model omits fileAbsolutePath.
func ExcelTools(source, defaultPath string) []Tool {
	return []Tool{
		&excelDescribeTool{source: source, defaultPath: defaultPath},
		&excelReadTool{source: source, defaultPath: defaultPath},
	}
}

type excelDescribeTool struct {
	source      string
	defaultPath string
}

func (t *excelDescribeTool) Definition() Definition {
	return Definition{
		Name:        ExcelDescribeSheetsTool,
		Description: "List the sheets of an Excel workbook with their used ranges.",
		Source:      "builtin:" + t.source,
		InputSchema: validation.ObjectSchema(map[string]map[string]interface{}{
			"fileAbsolutePath": {"type": "string", "description": "Absolute path to the workbook"},
		}, nil),
	}
}

func (t *excelDescribeTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	f, err := openWorkbook(stringArg(args, "fileAbsolutePath", t.defaultPath))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		fmt.Fprintf(&b, "%s\t%s\n", sheet, usedRange(rows))
	}
	return strings.TrimRight(b.String(), "\n"), ctx.Err()
}

func usedRange(rows [][]string) string {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if len(rows) == 0 || cols == 0 {
		return "empty"
	}
	last, err := excelize.CoordinatesToCellName(cols, len(rows))
	if err != nil {
		return "unknown"
	}
	return "A1:" + last
}

type excelReadTool struct {
	source      string
	defaultPath string
}

func (t *excelReadTool) Definition() Definition {
	return Definition{
		Name:        ExcelReadSheetTool,
		Description: "Read cell values from one sheet of an Excel workbook. Without a range the first page of rows is returned.",
		Source:      "builtin:" + t.source,
		InputSchema: validation.ObjectSchema(map[string]map[string]interface{}{
			"fileAbsolutePath": {"type": "string", "description": "Absolute path to the workbook"},
			"sheetName":        {"type": "string", "description": "Sheet to read"},
			"range": {
				"type":        "string",
				"description": "Cell range such as A1:J21",
				"pattern":     "^[A-Za-z]+[0-9]+:[A-Za-z]+[0-9]+$",
			},
		}, []string{"sheetName"}),
	}
}

func (t *excelReadTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	f, err := openWorkbook(stringArg(args, "fileAbsolutePath", t.defaultPath))
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheet := stringArg(args, "sheetName", "")
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return "", fmt.Errorf("sheet %q not found; available: %s", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	window, err := parseWindow(stringArg(args, "range", ""), len(rows))
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return renderRows(sheet, rows, window), nil
}

// window is a 1-based inclusive cell rectangle. maxCol 0 means every column.
type window struct {
	minCol, minRow, maxCol, maxRow int
}

func parseWindow(rng string, totalRows int) (window, error) {
	if rng == "" {
		return window{minCol: 1, minRow: 1, maxRow: min(totalRows, DefaultPageRows)}, nil
	}
	parts := strings.SplitN(strings.ToUpper(rng), ":", 2)
	if len(parts) != 2 {
		return window{}, fmt.Errorf("range %q must look like A1:J21", rng)
	}
	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return window{}, fmt.Errorf("range %q: %w", rng, err)
	}
	c2, r2, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return window{}, fmt.Errorf("range %q: %w", rng, err)
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	return window{minCol: c1, minRow: r1, maxCol: c2, maxRow: min(r2, totalRows)}, nil
}

func renderRows(sheet string, rows [][]string, w window) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sheet: %s (rows %d-%d of %d)\n", sheet, w.minRow, w.maxRow, len(rows))
	for r := w.minRow; r <= w.maxRow; r++ {
		row := rows[r-1]
		last := len(row)
		if w.maxCol > 0 && w.maxCol < last {
			last = w.maxCol
		}
		cells := []string{}
		if w.minCol-1 < last {
			cells = row[w.minCol-1 : last]
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func openWorkbook(path string) (*excelize.File, error) {
	if path == "" {
		return nil, fmt.Errorf("fileAbsolutePath is required")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return f, nil
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
