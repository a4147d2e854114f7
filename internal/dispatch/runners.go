package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var errMissingFile = errors.New(`input "file" must be a base64-encoded document`)

// SheetRunner imports rows from an uploaded .xlsx workbook.
// Input: file (base64), sheet (optional). The first row is treated as headers.
type SheetRunner struct {
	MaxRows int
}

// Run reads the requested sheet
func (r SheetRunner) Run(ctx context.Context, inv Invocation) (map[string]any, error) {
	data, err := decodeFile(inv.Input)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}
	sheet, _ := inv.Input["sheet"].(string)
	if sheet == "" {
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheet, err)
	}

	headers := []string{}
	if len(rows) > 0 {
		headers = rows[0]
		for i, h := range headers {
			headers[i] = strings.TrimSpace(h)
			if headers[i] == "" {
				headers[i] = fmt.Sprintf("Column_%d", i+1)
			}
		}
		rows = rows[1:]
	}

	total := len(rows)
	truncated := false
	if limit := r.maxRows(inv.Config); total > limit {
		rows = rows[:limit]
		truncated = true
	}

	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}

	return map[string]any{
		"summary":   fmt.Sprintf("Imported %d rows from sheet %s", len(records), sheet),
		"sheet":     sheet,
		"sheets":    sheets,
		"headers":   headers,
		"rows":      records,
		"records":   total,
		"truncated": truncated,
	}, nil
}

func (r SheetRunner) maxRows(config map[string]any) int {
	if v, ok := config["maxRows"].(float64); ok && v > 0 {
		return int(v)
	}
	if r.MaxRows > 0 {
		return r.MaxRows
	}
	return 1000
}

// DocumentRunner extracts plain text from an uploaded PDF.
// Input: file (base64).
type DocumentRunner struct {
	MaxPages int
}

// Run extracts the document text page by page
func (r DocumentRunner) Run(ctx context.Context, inv Invocation) (map[string]any, error) {
	data, err := decodeFile(inv.Input)
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if r.MaxPages > 0 && pages > r.MaxPages {
		return nil, fmt.Errorf("PDF has too many pages (%d), max allowed is %d", pages, r.MaxPages)
	}

	var text strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// pages that fail extraction are skipped
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(content)
	}

	body := text.String()
	words := len(strings.Fields(body))
	return map[string]any{
		"summary":   fmt.Sprintf("Extracted %d words from %d pages", words, pages),
		"pages":     pages,
		"wordCount": words,
		"text":      body,
	}, nil
}

// ReportRunner renders a markdown report to HTML.
// Input: markdown, or title plus findings (list of strings).
type ReportRunner struct {
	md goldmark.Markdown
}

// NewReportRunner creates a report renderer with GitHub-flavored markdown
func NewReportRunner() *ReportRunner {
	return &ReportRunner{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Run renders the report
func (r *ReportRunner) Run(ctx context.Context, inv Invocation) (map[string]any, error) {
	title, _ := inv.Input["title"].(string)
	if title == "" {
		title, _ = inv.Config["title"].(string)
	}
	if title == "" {
		title = "Performance Report"
	}

	source, _ := inv.Input["markdown"].(string)
	if source == "" {
		source = reportMarkdown(title, inv.Input["findings"])
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}

	return map[string]any{
		"summary":  fmt.Sprintf("Generated report %q", title),
		"title":    title,
		"markdown": source,
		"html":     buf.String(),
	}, nil
}

func reportMarkdown(title string, findings any) string {
	var sb strings.Builder
	sb.WriteString("# " + title + "\n\n")
	items, _ := findings.([]any)
	if len(items) == 0 {
		sb.WriteString("_No findings._\n")
		return sb.String()
	}
	sb.WriteString("## Findings\n\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %v\n", item))
	}
	return sb.String()
}

func decodeFile(input map[string]any) ([]byte, error) {
	encoded, _ := input["file"].(string)
	if encoded == "" {
		return nil, errMissingFile
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMissingFile, err)
	}
	return data, nil
}
