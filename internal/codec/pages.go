package codec

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// decodePages reads a page-image collection: a zip archive of page images,
// ordered by entry name. This is the shape rasterized PDFs arrive in.
func decodePages(data []byte, source string) (*document.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: page collection is empty", ErrCorrupt)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	pages := make([]document.Page, 0, len(entries))
	for i, f := range entries {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open page %s: %v", ErrCorrupt, f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read page %s: %v", ErrCorrupt, f.Name, err)
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: decode page %s: %v", ErrCorrupt, f.Name, err)
		}
		pages = append(pages, document.Page{Index: i, Image: img})
	}

	return &document.Document{
		Format: document.FormatPages,
		Pages:  pages,
		Source: source,
	}, nil
}

// encodePages writes the redacted pages as a zip of PNG files, one per page,
// keeping the original page order.
func encodePages(doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, page := range doc.Pages {
		if page.Image == nil {
			return nil, fmt.Errorf("%w: page %d has no image", ErrCorrupt, page.Index)
		}
		w, err := zw.Create(fmt.Sprintf("page-%04d.png", page.Index))
		if err != nil {
			return nil, fmt.Errorf("create page entry: %w", err)
		}
		if err := png.Encode(w, page.Image); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", page.Index, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close page archive: %w", err)
	}
	return buf.Bytes(), nil
}
