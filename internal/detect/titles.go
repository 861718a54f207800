package detect

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

// Honorifics and lexical triggers for French medical paperwork. Patient and
// practitioner names almost always follow one of these on scanned forms, which
// makes them detectable without a statistical model.
var (
	patientTitles = map[string]bool{
		"monsieur": true, "mr": true, "m.": true, "madame": true,
		"mme": true, "mlle": true, "mademoiselle": true, "patient": true, "patiente": true,
	}
	doctorTitles = map[string]bool{
		"docteur": true, "dr": true, "dr.": true, "drs": true,
	}
	roadTypes = map[string]bool{
		"rue": true, "route": true, "rte": true, "boulevard": true, "bd": true,
		"blv": true, "av": true, "av.": true, "avenue": true, "impasse": true,
		"allee": true, "allée": true, "chemin": true, "place": true,
	}
)

// TitleDetector finds person names, healthcare facilities and street addresses
// by lexical triggers: capitalized words after an honorific, hospital prefixes
// (hôpital / CHU / centre hospitalier), and "<number> <road type> ..." lines.
// It needs no external engine, so it keeps working when OCR text is the only
// input and the statistical recognizer is down.
type TitleDetector struct {
	logger *logger.Logger
}

// NewTitleDetector creates the lexical heuristic detector.
func NewTitleDetector(log *logger.Logger) *TitleDetector {
	return &TitleDetector{logger: log.WithComponent("title_detector")}
}

// Name identifies this detector in match origins.
func (d *TitleDetector) Name() string { return "title" }

// Ready always holds.
func (d *TitleDetector) Ready() bool { return true }

// word is one whitespace-delimited token with its byte offsets in the text.
type word struct {
	text  string
	start int
	end   int
}

// Detect scans line by line; triggers never cross line boundaries.
func (d *TitleDetector) Detect(_ context.Context, text string, enabled CategorySet) ([]document.PIIMatch, error) {
	var matches []document.PIIMatch

	offset := 0
	for _, line := range strings.Split(text, "\n") {
		words := splitWords(line, offset)
		matches = append(matches, d.detectLine(words, len(line)+offset, enabled)...)
		offset += len(line) + 1
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Span.Start < matches[j].Span.Start
	})
	return matches, nil
}

func (d *TitleDetector) detectLine(words []word, lineEnd int, enabled CategorySet) []document.PIIMatch {
	var matches []document.PIIMatch

	add := func(c document.Category, start, end int) {
		matches = append(matches, document.PIIMatch{
			Category:   c,
			Span:       &document.Span{Start: start, End: end},
			Confidence: 0.9,
			Origin:     d.Name(),
		})
	}

	for i, w := range words {
		low := strings.ToLower(normalizeWord(w.text))

		// Person names after an honorific: up to 3 following capitalized words.
		if enabled.Enabled(document.CategoryPersonName) && (patientTitles[low] || doctorTitles[low]) {
			if start, end, ok := capitalizedRun(words, i+1, 3); ok {
				add(document.CategoryPersonName, start, end)
			}
		}

		if enabled.Enabled(document.CategoryOrganization) {
			switch {
			// Hôpital / Hopitaux [de|d'] <Ville>
			case low == "hopital" || low == "hôpital" || low == "hopitaux" || low == "hôpitaux":
				end := w.end
				next := i + 1
				if next < len(words) {
					nl := strings.ToLower(normalizeWord(words[next].text))
					if nl == "de" || nl == "d'" {
						end = words[next].end
						next++
					}
				}
				if _, capEnd, ok := capitalizedRun(words, next, 3); ok {
					end = capEnd
				}
				add(document.CategoryOrganization, w.start, end)

			// Centre hospitalier [de] <Ville>
			case low == "centre" && i+1 < len(words) &&
				strings.HasPrefix(strings.ToLower(normalizeWord(words[i+1].text)), "hospitalier"):
				end := words[i+1].end
				next := i + 2
				if next < len(words) {
					nl := strings.ToLower(normalizeWord(words[next].text))
					if nl == "de" || nl == "d'" {
						end = words[next].end
						next++
					}
				}
				if _, capEnd, ok := capitalizedRun(words, next, 3); ok {
					end = capEnd
				}
				add(document.CategoryOrganization, w.start, end)

			// CHU <Ville>
			case low == "chu":
				end := w.end
				if _, capEnd, ok := capitalizedRun(words, i+1, 3); ok {
					end = capEnd
				}
				add(document.CategoryOrganization, w.start, end)
			}
		}

		// Street addresses: "<number> rue/avenue/bd ..." masked to end of line.
		if enabled.Enabled(document.CategoryLocation) && isAllDigits(normalizeWord(w.text)) && i+1 < len(words) {
			if roadTypes[strings.ToLower(normalizeWord(words[i+1].text))] {
				add(document.CategoryLocation, w.start, lineEnd)
			}
		}
	}

	return matches
}

// capitalizedRun returns the byte range covering up to max consecutive
// capitalized words starting at index from.
func capitalizedRun(words []word, from, max int) (start, end int, ok bool) {
	count := 0
	for j := from; j < len(words) && count < max; j++ {
		if !isCapitalized(words[j].text) {
			break
		}
		if count == 0 {
			start = words[j].start
		}
		end = words[j].end
		count++
	}
	return start, end, count > 0
}

// splitWords tokenizes one line into whitespace-delimited words with byte
// offsets relative to the whole text.
func splitWords(line string, base int) []word {
	var words []word
	i := 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		start := i
		for i < len(line) {
			r, size = utf8.DecodeRuneInString(line[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		words = append(words, word{text: line[start:i], start: base + start, end: base + i})
	}
	return words
}

func normalizeWord(w string) string {
	return strings.Trim(w, ".,;:()[]{}<>/\\\"'«»!?")
}

// isCapitalized treats a word as a proper-noun candidate when it is at least
// two runes long and starts with an uppercase letter. Bracketed tokens are
// mask placeholders from a previous redaction pass, never candidates.
func isCapitalized(w string) bool {
	if strings.ContainsAny(w, "[]") {
		return false
	}
	w = normalizeWord(w)
	if utf8.RuneCountInString(w) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(first)
}

func isAllDigits(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
