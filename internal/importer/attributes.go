package importer

import (
	"regexp"
	"strconv"
	"strings"
)

// ExtractedAttributes are the structured attributes recovered from a
// free-text product name.
type ExtractedAttributes struct {
	Color   string
	WidthMM *int
	DropMM  *int
}

// AttributeExtractor parses product names like "Aurora Shade Blue 100x160"
// into color / width / drop. Used when smart attribute extraction is enabled
// and the row carries no explicit values.
type AttributeExtractor struct{}

// NewAttributeExtractor returns an AttributeExtractor
func NewAttributeExtractor() *AttributeExtractor {
	return &AttributeExtractor{}
}

var (
	sizeTokenPattern = regexp.MustCompile(`(?i)\b(\d{2,4})\s*[x*]\s*(\d{2,4})\s*(?:cm|mm)?\b`)
	widthOnlyPattern = regexp.MustCompile(`(?i)\b(\d{2,4})\s*mm\s+wide\b`)
	spaceRunPattern  = regexp.MustCompile(`\s{2,}`)
)

// Recognized colour tokens, longest first so "duck egg" beats "egg"
var colorTokens = []string{
	"duck egg", "charcoal", "natural", "silver", "purple", "orange",
	"yellow", "cream", "ivory", "beige", "brown", "black", "white",
	"green", "grey", "gray", "navy", "blue", "teal", "pink", "gold", "red",
}

// Extract parses a product name into structured attributes. Missing parts
// stay zero-valued; a nil width/drop is never used as a query filter.
func (e *AttributeExtractor) Extract(name string) ExtractedAttributes {
	var out ExtractedAttributes
	lower := strings.ToLower(name)

	if match := sizeTokenPattern.FindStringSubmatch(name); match != nil {
		if w, err := strconv.Atoi(match[1]); err == nil {
			mm := toMillimetres(w)
			out.WidthMM = &mm
		}
		if d, err := strconv.Atoi(match[2]); err == nil {
			mm := toMillimetres(d)
			out.DropMM = &mm
		}
	} else if match := widthOnlyPattern.FindStringSubmatch(name); match != nil {
		if w, err := strconv.Atoi(match[1]); err == nil {
			mm := w
			out.WidthMM = &mm
		}
	}

	for _, token := range colorTokens {
		if containsWord(lower, token) {
			out.Color = titleCase(token)
			break
		}
	}

	return out
}

// CanonicalParentName strips size and colour tokens from a product name,
// leaving the shared product-line name variants have in common.
func (e *AttributeExtractor) CanonicalParentName(name string) string {
	cleaned := sizeTokenPattern.ReplaceAllString(name, " ")
	cleaned = widthOnlyPattern.ReplaceAllString(cleaned, " ")
	for _, token := range colorTokens {
		cleaned = removeWord(cleaned, token)
	}
	cleaned = spaceRunPattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Sheet sizes are usually centimetres; anything under 400 is treated as cm
func toMillimetres(n int) int {
	if n < 400 {
		return n * 10
	}
	return n
}

func containsWord(haystack, word string) bool {
	idx := strings.Index(haystack, word)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(haystack[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(haystack) || !isWordChar(haystack[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(haystack[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func removeWord(s, word string) string {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, word)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(lower[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(lower) || !isWordChar(lower[afterIdx])
		if before && after {
			s = s[:idx] + " " + s[afterIdx:]
			lower = strings.ToLower(s)
			idx = strings.Index(lower, word)
			continue
		}
		next := strings.Index(lower[idx+1:], word)
		if next < 0 {
			break
		}
		idx += 1 + next
	}
	return s
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
