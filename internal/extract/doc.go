// Document text extractors for PDF, DOCX, PPTX and XLSX leaves. API shapes
// for pdf/docx/excelize are grounded on
// other_examples/5f637f2f_divyang-garg-vibe-coding-sentinel__hub-api-repository-knowledge.go.go,
// which imports all three against the same interface this package exposes;
// PPTX text is pulled straight from its slideN.xml parts since no pack or
// ecosystem library parses pptx as directly as the other three (see
// DESIGN.md for that stdlib justification).
package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ExtractPDFText concatenates the plain text of every page in order.
func ExtractPDFText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("reading pdf %s: %w", path, err)
	}

	var text strings.Builder
	fontMap := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(fontMap)
		if err != nil {
			continue
		}
		text.WriteString(pageText)
		if i < reader.NumPage() {
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

// PDFPageCount reports how many pages a PDF has. RasterizePDF does not
// call it; it bounds rasterization by the renderer's own page count.
func PDFPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("reading pdf %s: %w", path, err)
	}
	return reader.NumPage(), nil
}

// ExtractDOCXText returns a document's paragraph text.
func ExtractDOCXText(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("reading docx %s: %w", path, err)
	}
	defer doc.Close()
	return doc.Editable().GetContent(), nil
}

// ExtractXLSXText joins each row's non-empty cells with tabs, one line per
// row, sheets concatenated in workbook order — mirroring
// original_source/ingestion/extractors.py's extract_text_xlsx.
func ExtractXLSXText(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("opening xlsx %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) == 0 {
				continue
			}
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// pptxSlideXML mirrors the subset of DrawingML a slideN.xml part uses to
// hold run text inside shapes: <a:t> elements nested under <p:txBody>.
type pptxSlideXML struct {
	XMLName xml.Name   `xml:"sld"`
	Shapes  []pptxText `xml:"cSld>spTree>sp>txBody>p"`
}

type pptxText struct {
	Runs []string `xml:"r>t"`
}

// ExtractPPTXText walks a pptx's ppt/slides/slideN.xml parts in slide
// order and joins each run of text. pptx is a zipped OOXML package, so
// archive/zip + encoding/xml read it directly without a dedicated library.
func ExtractPPTXText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening pptx %s: %w", path, err)
	}
	defer r.Close()

	type slideFile struct {
		index int
		file  *zip.File
	}
	var slides []slideFile
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(f.Name, "ppt/slides/slide"), ".xml")
		idx, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{index: idx, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].index < slides[j].index })

	var b strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		var slide pptxSlideXML
		if err := xml.Unmarshal(data, &slide); err != nil {
			continue
		}
		for _, p := range slide.Shapes {
			line := strings.Join(p.Runs, "")
			if line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}
