package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// Register decoders for every raster format the engine accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/raaihank/doc-sentinel/internal/document"
)

func decodeImage(data []byte, source string) (*document.Document, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &document.Document{
		Format: document.FormatImage,
		Pages:  []document.Page{{Index: 0, Image: img}},
		Source: source,
	}, nil
}

// encodeImage writes the single redacted page as PNG. PNG is lossless, so
// pixels outside the painted blocks survive bit-exact.
func encodeImage(doc *document.Document) ([]byte, error) {
	if len(doc.Pages) != 1 || doc.Pages[0].Image == nil {
		return nil, fmt.Errorf("%w: image document has no page", ErrCorrupt)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, doc.Pages[0].Image); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
