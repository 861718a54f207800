package document

import "image"

// Format identifies the family of a document and decides how it is redacted:
// text-addressable formats are spliced, coordinate-addressable formats are painted.
type Format string

const (
	FormatText  Format = "text"   // plain UTF-8 text
	FormatDocx  Format = "docx"   // word-processing (OOXML text runs)
	FormatPages Format = "pages"  // ordered collection of page images (rasterized PDF)
	FormatImage Format = "image"  // single raster image
)

// CoordinateAddressable reports whether redaction for this format paints pixel
// blocks rather than splicing text.
func (f Format) CoordinateAddressable() bool {
	return f == FormatPages || f == FormatImage
}

// Category classifies a piece of detected PII.
type Category string

const (
	CategoryDate         Category = "date"
	CategoryLongNumber   Category = "long_number"
	CategoryEmail        Category = "email"
	CategoryPhone        Category = "phone"
	CategorySSN          Category = "ssn"
	CategoryPersonName   Category = "person_name"
	CategoryLocation     Category = "location"
	CategoryOrganization Category = "organization"
	CategoryCustomLabel  Category = "custom_label"
)

// AllCategories lists every known category, in report order.
func AllCategories() []Category {
	return []Category{
		CategoryDate,
		CategoryLongNumber,
		CategoryEmail,
		CategoryPhone,
		CategorySSN,
		CategoryPersonName,
		CategoryLocation,
		CategoryOrganization,
		CategoryCustomLabel,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Document is one unit of work. Exactly one invocation of the pipeline consumes
// a Document and everything derived from it is discarded when the call returns.
type Document struct {
	Format Format
	// Text holds the full text for text-addressable formats.
	Text string
	// Runs holds the text run boundaries for word-processing formats so a
	// splice never crosses XML structure. Empty for plain text.
	Runs []Span
	// RunTexts holds the per-run content for word-processing formats; the
	// encoder writes these back into the document structure.
	RunTexts []string
	// Pages holds the ordered page images for coordinate-addressable formats.
	Pages []Page
	// Source is a caller-provided name used only in logs, never content.
	Source string
}

// Page is one renderable surface of a pages/image document.
type Page struct {
	Index int
	Image image.Image
}

// Width returns the pixel width of the page image, or 0 if absent.
func (p Page) Width() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dx()
}

// Height returns the pixel height of the page image, or 0 if absent.
func (p Page) Height() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dy()
}

// Span is a half-open byte offset range [Start, End) into page or document text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte or touch.
func (s Span) Overlaps(o Span) bool {
	return s.Start <= o.End && o.Start <= s.End
}

// Union returns the smallest span covering both.
func (s Span) Union(o Span) Span {
	if o.Start < s.Start {
		s.Start = o.Start
	}
	if o.End > s.End {
		s.End = o.End
	}
	return s
}

// PIIMatch is one located piece of PII. Exactly one of Span or Box is set:
// Span for text-addressable sources, Box for coordinate-addressable ones.
// Matches are immutable once created; the pipeline only consumes them.
type PIIMatch struct {
	Category   Category     `json:"category"`
	Span       *Span        `json:"span,omitempty"`
	Box        *BoundingBox `json:"box,omitempty"`
	Page       int          `json:"page"`
	Confidence float64      `json:"confidence"`
	Origin     string       `json:"origin"`
}

// MaskKind identifies how a redaction destroyed content.
type MaskKind string

const (
	MaskOpaqueRectangle MaskKind = "opaque_rectangle"
	MaskTextReplacement MaskKind = "text_replacement"
)

// RedactionRecord is one applied mask. Merged overlapping matches produce a
// single record; Merged counts the contributing matches.
type RedactionRecord struct {
	Category Category `json:"category"`
	Page     int      `json:"page"`
	MaskKind MaskKind `json:"maskKind"`
	Location string   `json:"location"`
	Merged   int      `json:"merged"`
}
