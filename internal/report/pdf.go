package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"payboard/internal/core"
)

const (
	pdfTitle     = "Payout Report"
	pdfRowHeight = 8.0
	pdfFont      = "Helvetica"
	pdfUTF8Font  = "payboard-utf8"
)

// column widths in mm for Author, Articles, Payout on A4 portrait
var pdfCols = []float64{100, 35, 45}

// WritePDF renders an A4 printable table: a title, the column header
// (repeated on every page), one row per author and a bold Total footer.
// The core Helvetica font covers cp1252 only; see WritePDFWithFont.
func WritePDF(w io.Writer, rep Report) error {
	return WritePDFWithFont(w, rep, "")
}

// WritePDFWithFont is WritePDF with a UTF-8 TrueType font, so author names
// outside cp1252 render as written. An empty fontFile uses Helvetica.
func WritePDFWithFont(w io.Writer, rep Report, fontFile string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetCreator("payboard", true)
	pdf.SetCreationDate(rep.GeneratedAt)
	pdf.SetAutoPageBreak(false, 15)

	d := &pdfDoc{Fpdf: pdf, family: pdfFont}
	if fontFile != "" {
		pdf.AddUTF8Font(pdfUTF8Font, "", fontFile)
		pdf.AddUTF8Font(pdfUTF8Font, "B", fontFile)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load pdf font %s: %w", fontFile, err)
		}
		d.family = pdfUTF8Font
		d.tr = func(s string) string { return s }
	} else {
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	limit := pageH - bottom

	pdf.AddPage()
	pdf.SetFont(d.family, "B", 16)
	pdf.CellFormat(0, 10, pdfTitle, "", 1, "L", false, 0, "")
	pdf.SetFont(d.family, "", 9)
	pdf.CellFormat(0, 6, "Generated "+rep.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	d.header()

	pdf.SetFont(d.family, "", 10)
	for _, r := range rep.Rows {
		if pdf.GetY()+pdfRowHeight > limit {
			pdf.AddPage()
			d.header()
			pdf.SetFont(d.family, "", 10)
		}
		d.cells(false, d.tr(r.Author), strconv.Itoa(r.ArticleCount), core.FormatDollars(r.PayoutTotal))
	}

	if pdf.GetY()+pdfRowHeight > limit {
		pdf.AddPage()
		d.header()
	}
	pdf.SetFont(d.family, "B", 10)
	pdf.SetFillColor(235, 235, 235)
	d.cells(true, totalLabel, strconv.Itoa(rep.Totals.Articles), core.FormatDollars(rep.Totals.Payout))

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

type pdfDoc struct {
	*fpdf.Fpdf
	family string
	tr     func(string) string
}

func (d *pdfDoc) header() {
	d.SetFont(d.family, "B", 10)
	d.SetFillColor(41, 98, 255)
	d.SetTextColor(255, 255, 255)
	d.cells(true, header...)
	d.SetTextColor(0, 0, 0)
}

func (d *pdfDoc) cells(fill bool, cells ...string) {
	for i, c := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		d.CellFormat(pdfCols[i], pdfRowHeight, c, "1", 0, align, fill, 0, "")
	}
	d.Ln(-1)
}
