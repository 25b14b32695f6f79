package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const pdfTableWidth = 277.0

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType reports the MIME type of rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Render creates a PDF document with the dataset title, a header row repeated per page and a generated-at footer.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	widths := columnWidths(data.Columns)
	labels := data.labels()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Generated %s  |  Page %d/{nb}", generated.Format(time.RFC1123), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(235, 235, 235)
		for i, label := range labels {
			pdf.CellFormat(widths[i], 8, tr(label), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-bottom-5 {
			pdf.AddPage()
			header()
		}
		for i, col := range data.Columns {
			pdf.CellFormat(widths[i], 7, tr(fit(pdf, row[col.Key], widths[i]-2)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column) []float64 {
	total := 0.0
	for _, col := range cols {
		if col.Width > 0 {
			total += col.Width
		} else {
			total++
		}
	}
	widths := make([]float64, len(cols))
	for i, col := range cols {
		w := col.Width
		if w <= 0 {
			w = 1
		}
		widths[i] = pdfTableWidth * w / total
	}
	return widths
}

func fit(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
