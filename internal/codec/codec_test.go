package codec

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// TestDetectFormat tests extension-based format selection
func TestDetectFormat(t *testing.T) {
	cases := []struct {
		filename string
		want     document.Format
	}{
		{"report.txt", document.FormatText},
		{"lettre.TXT", document.FormatText},
		{"compte-rendu.docx", document.FormatDocx},
		{"scan.png", document.FormatImage},
		{"scan.jpeg", document.FormatImage},
		{"scan.tiff", document.FormatImage},
		{"scan.bmp", document.FormatImage},
		{"dossier.zip", document.FormatPages},
		{"dossier.pages", document.FormatPages},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tc.filename)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.filename, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: format = %s, want %s", tc.filename, got, tc.want)
		}
	}

	if _, err := DetectFormat("archive.rar"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Unknown extension should return ErrUnsupportedFormat, got %v", err)
	}
}

// TestTextCodec tests the plain-text round trip
func TestTextCodec(t *testing.T) {
	data := []byte("Patient: Jean Dupont\nné le 12/03/1980\n")
	doc, err := Decode(data, document.FormatText, "note.txt")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if doc.Text != string(data) {
		t.Errorf("Text = %q", doc.Text)
	}

	out, ext, err := Encode(doc, data)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if ext != ".txt" || !bytes.Equal(out, data) {
		t.Errorf("Round trip changed content")
	}
}

// TestImageCodec tests raster decode and lossless re-encode
func TestImageCodec(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 12), G: uint8(y * 25), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to build test image: %v", err)
	}

	doc, err := Decode(buf.Bytes(), document.FormatImage, "scan.png")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("Got %d pages, want 1", len(doc.Pages))
	}
	if doc.Pages[0].Width() != 20 || doc.Pages[0].Height() != 10 {
		t.Errorf("Page dimensions = %dx%d", doc.Pages[0].Width(), doc.Pages[0].Height())
	}

	out, ext, err := Encode(doc, buf.Bytes())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if ext != ".png" {
		t.Errorf("Extension = %s", ext)
	}
	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Re-decode failed: %v", err)
	}
	// PNG is lossless: pixels survive bit-exact.
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			wr, wg, wb, _ := img.At(x, y).RGBA()
			gr, gg, gb, _ := decoded.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb {
				t.Fatalf("Pixel (%d,%d) changed in round trip", x, y)
			}
		}
	}

	if _, err := Decode([]byte("not an image"), document.FormatImage, "bad.png"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Garbage input should return ErrCorrupt, got %v", err)
	}
}

// TestPagesCodec tests the page collection round trip
func TestPagesCodec(t *testing.T) {
	pageBytes := func(w, h int) []byte {
		var buf bytes.Buffer
		png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
		return buf.Bytes()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// Entries deliberately out of order; decode must sort by name.
	for _, entry := range []struct {
		name string
		w    int
	}{
		{"page-0002.png", 30},
		{"page-0001.png", 20},
		{"page-0003.png", 40},
	} {
		w, err := zw.Create(entry.name)
		if err != nil {
			t.Fatalf("Failed to build archive: %v", err)
		}
		w.Write(pageBytes(entry.w, 10))
	}
	zw.Close()

	doc, err := Decode(buf.Bytes(), document.FormatPages, "dossier.zip")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("Got %d pages, want 3", len(doc.Pages))
	}
	widths := []int{20, 30, 40}
	for i, page := range doc.Pages {
		if page.Index != i {
			t.Errorf("Page %d has index %d", i, page.Index)
		}
		if page.Width() != widths[i] {
			t.Errorf("Page %d width = %d, want %d (name order)", i, page.Width(), widths[i])
		}
	}

	out, ext, err := Encode(doc, buf.Bytes())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if ext != ".zip" {
		t.Errorf("Extension = %s", ext)
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("Re-read failed: %v", err)
	}
	if len(zr.File) != 3 {
		t.Errorf("Re-encoded archive has %d entries", len(zr.File))
	}

	empty := func() []byte {
		var b bytes.Buffer
		zip.NewWriter(&b).Close()
		return b.Bytes()
	}()
	if _, err := Decode(empty, document.FormatPages, "vide.zip"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Empty collection should return ErrCorrupt, got %v", err)
	}
}

// buildDocx assembles a minimal OOXML word-processing archive.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   documentXML,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to build docx: %v", err)
		}
		w.Write([]byte(content))
	}
	zw.Close()
	return buf.Bytes()
}

// TestDocxCodec tests run extraction and splice-back
func TestDocxCodec(t *testing.T) {
	t.Run("DecodeRuns", func(t *testing.T) {
		data := buildDocx(t, `<w:document><w:body>`+
			`<w:p><w:r><w:t>Patient: </w:t></w:r><w:r><w:t xml:space="preserve">Jean Dupont</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>tel 0601020304</w:t></w:r></w:p>`+
			`</w:body></w:document>`)

		doc, err := Decode(data, document.FormatDocx, "cr.docx")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if doc.Text != "Patient: Jean Dupont\ntel 0601020304\n" {
			t.Errorf("Text = %q", doc.Text)
		}
		if len(doc.Runs) != 3 {
			t.Fatalf("Got %d runs, want 3", len(doc.Runs))
		}
		for i, run := range doc.Runs {
			if doc.Text[run.Start:run.End] != doc.RunTexts[i] {
				t.Errorf("Run %d span %q does not match run text %q",
					i, doc.Text[run.Start:run.End], doc.RunTexts[i])
			}
		}
	})

	t.Run("Entities", func(t *testing.T) {
		data := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t>a &amp; b &lt;c&gt;</w:t></w:r></w:p></w:body></w:document>`)
		doc, err := Decode(data, document.FormatDocx, "cr.docx")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if doc.RunTexts[0] != "a & b <c>" {
			t.Errorf("Unescaped run = %q", doc.RunTexts[0])
		}
	})

	t.Run("SpliceBack", func(t *testing.T) {
		data := buildDocx(t, `<w:document><w:body>`+
			`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Jean Dupont</w:t></w:r><w:r><w:t> suivi</w:t></w:r></w:p>`+
			`</w:body></w:document>`)

		_, err := Decode(data, document.FormatDocx, "cr.docx")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		redacted := &document.Document{
			Format:   document.FormatDocx,
			RunTexts: []string{"[REDACTED]", " suivi"},
		}
		out, ext, err := Encode(redacted, data)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if ext != ".docx" {
			t.Errorf("Extension = %s", ext)
		}

		roundTrip, err := Decode(out, document.FormatDocx, "cr.docx")
		if err != nil {
			t.Fatalf("Re-decode failed: %v", err)
		}
		if roundTrip.Text != "[REDACTED] suivi\n" {
			t.Errorf("Round trip text = %q", roundTrip.Text)
		}
		if strings.Contains(string(out), "Jean Dupont") {
			t.Error("Redacted archive still contains the original text")
		}

		// Formatting structure outside the runs survives verbatim.
		xmlData, err := readZipEntry(out, docxDocumentEntry)
		if err != nil {
			t.Fatalf("Failed to read document.xml: %v", err)
		}
		if !strings.Contains(string(xmlData), "<w:rPr><w:b/></w:rPr>") {
			t.Error("Run formatting was lost")
		}
	})

	t.Run("EscapesOnEncode", func(t *testing.T) {
		data := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t>texte</w:t></w:r></w:p></w:body></w:document>`)
		redacted := &document.Document{Format: document.FormatDocx, RunTexts: []string{"<&>"}}
		out, _, err := Encode(redacted, data)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		xmlData, err := readZipEntry(out, docxDocumentEntry)
		if err != nil {
			t.Fatalf("Failed to read document.xml: %v", err)
		}
		if !strings.Contains(string(xmlData), "&lt;&amp;&gt;") {
			t.Errorf("Replacement not escaped: %s", xmlData)
		}
	})

	t.Run("RunCountMismatch", func(t *testing.T) {
		data := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t>un</w:t></w:r></w:p></w:body></w:document>`)
		redacted := &document.Document{Format: document.FormatDocx, RunTexts: []string{"a", "b"}}
		if _, _, err := Encode(redacted, data); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Run count mismatch should return ErrCorrupt, got %v", err)
		}
	})

	t.Run("MissingDocumentEntry", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, _ := zw.Create("word/autre.xml")
		w.Write([]byte("<x/>"))
		zw.Close()

		if _, err := Decode(buf.Bytes(), document.FormatDocx, "bad.docx"); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Missing document.xml should return ErrCorrupt, got %v", err)
		}
	})

	t.Run("SelfClosingRun", func(t *testing.T) {
		data := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t/></w:r><w:r><w:t>texte</w:t></w:r></w:p></w:body></w:document>`)
		doc, err := Decode(data, document.FormatDocx, "cr.docx")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if len(doc.Runs) != 1 {
			t.Errorf("Got %d runs, want 1 (self-closing run skipped)", len(doc.Runs))
		}
	})
}
