package codec

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/raaihank/doc-sentinel/internal/document"
)

const docxDocumentEntry = "word/document.xml"

var (
	xmlUnescaper = strings.NewReplacer(
		"&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&",
	)
	xmlEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
	)
)

// runLoc locates one <w:t> element's inner text inside document.xml.
type runLoc struct {
	innerStart int
	innerEnd   int
	// paragraphEnd marks that a paragraph closes after this run.
	paragraphEnd bool
}

// scanRuns walks document.xml byte-wise and returns every text run location in
// document order. Both decode and encode use this scanner, so run indexes
// always line up between the two passes.
func scanRuns(xmlData []byte) ([]runLoc, error) {
	var runs []runLoc
	i := 0
	for {
		open := bytes.Index(xmlData[i:], []byte("<w:t"))
		if open < 0 {
			break
		}
		open += i

		// Require a real <w:t> or <w:t ...> tag, not <w:tbl> etc.
		after := open + len("<w:t")
		if after >= len(xmlData) {
			break
		}
		if c := xmlData[after]; c != '>' && c != ' ' && c != '/' {
			i = after
			continue
		}

		tagEnd := bytes.IndexByte(xmlData[open:], '>')
		if tagEnd < 0 {
			return nil, fmt.Errorf("%w: unterminated w:t tag", ErrCorrupt)
		}
		tagEnd += open

		// Self-closing empty run
		if xmlData[tagEnd-1] == '/' {
			i = tagEnd + 1
			continue
		}

		closeIdx := bytes.Index(xmlData[tagEnd:], []byte("</w:t>"))
		if closeIdx < 0 {
			return nil, fmt.Errorf("%w: unterminated w:t element", ErrCorrupt)
		}
		closeIdx += tagEnd

		loc := runLoc{innerStart: tagEnd + 1, innerEnd: closeIdx}

		// A paragraph boundary before the next run means this run ends its
		// paragraph; detection must see a line break there.
		next := bytes.Index(xmlData[closeIdx:], []byte("<w:t"))
		paraClose := bytes.Index(xmlData[closeIdx:], []byte("</w:p>"))
		if paraClose >= 0 && (next < 0 || paraClose < next) {
			loc.paragraphEnd = true
		}

		runs = append(runs, loc)
		i = closeIdx + len("</w:t>")
	}
	return runs, nil
}

// decodeDocx extracts the text runs of an OOXML word-processing document. The
// document text joins all runs, with newlines at paragraph boundaries; run
// spans index into that text so splices never cross XML structure.
func decodeDocx(data []byte, source string) (*document.Document, error) {
	xmlData, err := readZipEntry(data, docxDocumentEntry)
	if err != nil {
		return nil, err
	}

	locs, err := scanRuns(xmlData)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	spans := make([]document.Span, 0, len(locs))
	texts := make([]string, 0, len(locs))

	for _, loc := range locs {
		text := xmlUnescaper.Replace(string(xmlData[loc.innerStart:loc.innerEnd]))
		start := sb.Len()
		sb.WriteString(text)
		spans = append(spans, document.Span{Start: start, End: sb.Len()})
		texts = append(texts, text)
		if loc.paragraphEnd {
			sb.WriteByte('\n')
		}
	}

	return &document.Document{
		Format:   document.FormatDocx,
		Text:     sb.String(),
		Runs:     spans,
		RunTexts: texts,
		Source:   source,
	}, nil
}

// encodeDocx writes the redacted run texts back into the original archive.
// Every byte outside the spliced run contents is copied verbatim, so
// structure the engine never touched survives losslessly.
func encodeDocx(original []byte, runTexts []string) ([]byte, error) {
	xmlData, err := readZipEntry(original, docxDocumentEntry)
	if err != nil {
		return nil, err
	}
	locs, err := scanRuns(xmlData)
	if err != nil {
		return nil, err
	}
	if len(locs) != len(runTexts) {
		return nil, fmt.Errorf("%w: %d runs in document, %d redacted", ErrCorrupt, len(locs), len(runTexts))
	}

	var xmlOut bytes.Buffer
	cursor := 0
	for i, loc := range locs {
		xmlOut.Write(xmlData[cursor:loc.innerStart])
		xmlOut.WriteString(xmlEscaper.Replace(runTexts[i]))
		cursor = loc.innerEnd
	}
	xmlOut.Write(xmlData[cursor:])

	// Rebuild the archive with only document.xml replaced.
	zr, err := zip.NewReader(bytes.NewReader(original), int64(len(original)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", f.Name, err)
		}
		if f.Name == docxDocumentEntry {
			if _, err := w.Write(xmlOut.Bytes()); err != nil {
				return nil, fmt.Errorf("write %s: %w", f.Name, err)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorrupt, f.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			return nil, fmt.Errorf("copy %s: %w", f.Name, err)
		}
		rc.Close()
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func readZipEntry(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorrupt, name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCorrupt, name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, name)
}
