// Package intake turns uploaded item lists, whatever their container
// format, into plain text lines for the parser backends.
package intake

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Kind identifies the container format of an item list.
type Kind string

const (
	KindText Kind = "text"
	KindHTML Kind = "html"
	KindXLSX Kind = "xlsx"
	KindPDF  Kind = "pdf"
	KindEML  Kind = "eml"
)

var (
	reLetter = regexp.MustCompile(`\p{L}`)
	reDigit  = regexp.MustCompile(`\p{N}`)
	reSpaces = regexp.MustCompile(`\s+`)

	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^--+$`),
		regexp.MustCompile(`(?i)^thanks`),
		regexp.MustCompile(`(?i)^thank you`),
		regexp.MustCompile(`(?i)^(best|kind) regards`),
		regexp.MustCompile(`(?i)^regards`),
		regexp.MustCompile(`(?i)^sent from`),
		regexp.MustCompile(`(?i)^tel[:\s]`),
		regexp.MustCompile(`(?i)^e-?mail[:\s]`),
		regexp.MustCompile(`(?i)^http`),
		regexp.MustCompile(`(?i)^page \d+`),
	}

	nameProbes = []string{"name", "item", "product", "description"}
	qtyProbes  = []string{"qty", "quantity", "amount", "count"}
	unitProbes = []string{"unit", "uom", "measure"}
)

// KindForPath guesses the container format from the file extension.
// Unknown extensions are treated as plain text.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return KindHTML
	case ".xlsx", ".xls":
		return KindXLSX
	case ".pdf":
		return KindPDF
	case ".eml":
		return KindEML
	default:
		return KindText
	}
}

// FromFile reads path and extracts item lines according to its extension.
func FromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Lines(KindForPath(path), data)
}

// Lines extracts item lines from data in the given container format.
func Lines(kind Kind, data []byte) ([]string, error) {
	switch kind {
	case KindHTML:
		return htmlLines(data)
	case KindXLSX:
		return xlsxLines(data)
	case KindPDF:
		return pdfLines(data)
	case KindEML:
		return emlLines(data)
	default:
		return textLines(string(data)), nil
	}
}

func textLines(text string) []string {
	out := []string{}
	for _, line := range splitLines(text) {
		if isLikelyNoise(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func htmlLines(data []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := []string{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		nameIdx, qtyIdx, unitIdx := -1, -1, -1
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}
			if i == 0 {
				if n, q, u := inferColumns(cells); n >= 0 || q >= 0 {
					nameIdx, qtyIdx, unitIdx = n, q, u
					return
				}
			}
			if line := rowLine(cells, nameIdx, qtyIdx, unitIdx); line != "" {
				out = append(out, line)
			}
		})
	})
	if len(out) > 0 {
		return out, nil
	}

	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if line := normalizeSpaces(li.Text()); line != "" && !isLikelyNoise(line) {
			out = append(out, line)
		}
	})
	if len(out) > 0 {
		return out, nil
	}

	return textLines(doc.Text()), nil
}

func xlsxLines(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	out := []string{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		nameIdx, qtyIdx, unitIdx := -1, -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && nameIdx < 0 {
				if n, q, u := inferColumns(cells); n >= 0 || q >= 0 {
					nameIdx, qtyIdx, unitIdx = n, q, u
					continue
				}
			}
			if line := rowLine(cells, nameIdx, qtyIdx, unitIdx); line != "" {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

func pdfLines(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	out := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			if isLikelyNoise(line) {
				continue
			}
			// Page furniture survives text extraction; keep only lines
			// that could plausibly name an item.
			if !reLetter.MatchString(line) {
				continue
			}
			if !reDigit.MatchString(line) && len([]rune(line)) < 8 {
				continue
			}
			out = append(out, line)
		}
	}
	return out, nil
}

func emlLines(data []byte) ([]string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	// Text and HTML bodies are usually alternative renditions of the
	// same list; taking both would double every quantity downstream.
	out := textLines(env.Text)
	if len(out) == 0 && env.HTML != "" {
		if fromHTML, err := htmlLines([]byte(env.HTML)); err == nil {
			out = fromHTML
		}
	}

	for _, att := range env.Attachments {
		lower := strings.ToLower(att.FileName)
		switch {
		case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
			if extra, err := xlsxLines(att.Content); err == nil {
				out = append(out, extra...)
			}
		case strings.HasSuffix(lower, ".pdf"):
			if extra, err := pdfLines(att.Content); err == nil {
				out = append(out, extra...)
			}
		}
	}
	return out, nil
}

// rowLine flattens a table row into a parseable line. When header
// inference located the columns, the row is reordered to "name qty unit"
// so quantity extraction sees its usual shape.
func rowLine(cells []string, nameIdx, qtyIdx, unitIdx int) string {
	line := ""
	if nameIdx >= 0 || qtyIdx >= 0 {
		line = pickCell(cells, nameIdx, 0) + " " + pickCell(cells, qtyIdx, -1) + " " + pickCell(cells, unitIdx, -1)
	} else {
		line = strings.Join(cells, " ")
	}
	line = normalizeSpaces(line)
	if !reLetter.MatchString(line) {
		return ""
	}
	return line
}

func inferColumns(cells []string) (nameIdx, qtyIdx, unitIdx int) {
	// A header row carries labels, not amounts.
	if reDigit.MatchString(strings.Join(cells, " ")) {
		return -1, -1, -1
	}
	norm := make([]string, 0, len(cells))
	for _, c := range cells {
		norm = append(norm, strings.ToLower(c))
	}
	nameIdx = findHeaderIndex(norm, nameProbes)
	qtyIdx = findHeaderIndex(norm, qtyProbes)
	unitIdx = findHeaderIndex(norm, unitProbes)
	return
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	empty := true
	for _, c := range row {
		c = normalizeSpaces(c)
		if c != "" {
			empty = false
		}
		out = append(out, c)
	}
	if empty {
		return nil
	}
	return out
}
