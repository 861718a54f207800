package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// ErrUnsupportedFormat is fatal: the input is not one of the known formats and
// the pipeline aborts before detection.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrCorrupt is fatal: the input claims a known format but cannot be decoded.
// No output is produced.
var ErrCorrupt = errors.New("corrupt document")

// DetectFormat maps a filename extension to a document format.
func DetectFormat(filename string) (document.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return document.FormatText, nil
	case ".docx":
		return document.FormatDocx, nil
	case ".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff", ".bmp":
		return document.FormatImage, nil
	case ".zip", ".pages":
		return document.FormatPages, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Decode converts raw bytes of a known format into the document model. PDF
// rasterization happens upstream; rasterized pages arrive here as a page
// collection.
func Decode(data []byte, format document.Format, source string) (*document.Document, error) {
	switch format {
	case document.FormatText:
		return decodeText(data, source)
	case document.FormatDocx:
		return decodeDocx(data, source)
	case document.FormatImage:
		return decodeImage(data, source)
	case document.FormatPages:
		return decodePages(data, source)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Encode serializes a redacted document back to bytes and returns the
// suggested output extension. For word-processing documents the original
// bytes are required so untouched structure survives losslessly.
func Encode(doc *document.Document, original []byte) ([]byte, string, error) {
	switch doc.Format {
	case document.FormatText:
		return []byte(doc.Text), ".txt", nil
	case document.FormatDocx:
		data, err := encodeDocx(original, doc.RunTexts)
		return data, ".docx", err
	case document.FormatImage:
		data, err := encodeImage(doc)
		return data, ".png", err
	case document.FormatPages:
		data, err := encodePages(doc)
		return data, ".zip", err
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, doc.Format)
	}
}

func decodeText(data []byte, source string) (*document.Document, error) {
	return &document.Document{
		Format: document.FormatText,
		Text:   string(data),
		Source: source,
	}, nil
}
