package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePPTX(t *testing.T, path string, slideXML map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range slideXML {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

const slide1XML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:sp>
        <p:txBody>
          <a:p><a:r><a:t>Employee SSN: 123-45-6789</a:t></a:r></a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`

const slide2XML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:sp>
        <p:txBody>
          <a:p><a:r><a:t>Second slide</a:t></a:r></a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`

func TestExtractPPTXTextOrdersSlides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.pptx")
	writePPTX(t, path, map[string]string{
		"ppt/slides/slide2.xml": slide2XML,
		"ppt/slides/slide1.xml": slide1XML,
	})

	text, err := ExtractPPTXText(path)
	if err != nil {
		t.Fatalf("ExtractPPTXText() error = %v", err)
	}
	if !strings.Contains(text, "123-45-6789") {
		t.Fatalf("missing slide 1 text: %q", text)
	}
	first := strings.Index(text, "Employee SSN")
	second := strings.Index(text, "Second slide")
	if first == -1 || second == -1 || first > second {
		t.Fatalf("slides not in order: %q", text)
	}
}

func TestExtractPPTXTextEmptyDeck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pptx")
	writePPTX(t, path, map[string]string{"ppt/presentation.xml": "<p:presentation/>"})

	text, err := ExtractPPTXText(path)
	if err != nil {
		t.Fatalf("ExtractPPTXText() error = %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}
