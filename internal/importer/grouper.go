package importer

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// ParentInfo is the inferred parent product for a group of variant rows
type ParentInfo struct {
	Name        string
	SKUPrefix   string
	Description string
	Features    []string
	Details     []string
}

// ParentGroup clusters variant rows that share one parent product
type ParentGroup struct {
	Key      string
	Parent   ParentInfo
	Products []MappedRow
}

// SimilarityGrouper clusters mapped rows into inferred parent-product groups
// when the sheet carries no explicit parent/child structure.
type SimilarityGrouper struct {
	extractor *AttributeExtractor
}

// NewSimilarityGrouper returns a grouper backed by the given extractor
func NewSimilarityGrouper(extractor *AttributeExtractor) *SimilarityGrouper {
	return &SimilarityGrouper{extractor: extractor}
}

var skuPrefixPattern = regexp.MustCompile(`^(\d{3})-\d{3}$`)

// Group clusters rows into parent groups. Rows with an empty product_name
// are excluded: they cannot be clustered. Key derivation: a 3-digit-dash-
// 3-digit SKU contributes its prefix; otherwise the canonical parent name is
// hashed. Groups come back in first-seen order, so SKU-prefix siblings land
// in the same group regardless of row order.
func (g *SimilarityGrouper) Group(rows []MappedRow) []ParentGroup {
	var groups []ParentGroup
	index := make(map[string]int)

	for _, row := range rows {
		if row.ProductName == "" {
			continue
		}

		key, prefix := g.GroupKey(row)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, ParentGroup{
				Key: key,
				Parent: ParentInfo{
					Name:        g.parentName(row),
					SKUPrefix:   prefix,
					Description: row.Description,
					Features:    row.FeatureList(),
					Details:     row.DetailList(),
				},
			})
			i = index[key]
		}
		groups[i].Products = append(groups[i].Products, row)
	}

	return groups
}

// GroupKey derives the group key for one row, returning the SKU prefix when
// the key came from the SKU pattern. Exposed for the phase-2 fallback path.
func (g *SimilarityGrouper) GroupKey(row MappedRow) (key, skuPrefix string) {
	if match := skuPrefixPattern.FindStringSubmatch(row.VariantSKU); match != nil {
		return match[1], match[1]
	}
	canonical := strings.ToLower(g.extractor.CanonicalParentName(row.ProductName))
	h := fnv.New64a()
	h.Write([]byte(canonical))
	return fmt.Sprintf("%016x", h.Sum64()), ""
}

func (g *SimilarityGrouper) parentName(row MappedRow) string {
	if row.ParentName != "" {
		return row.ParentName
	}
	if name := g.extractor.CanonicalParentName(row.ProductName); name != "" {
		return name
	}
	return row.ProductName
}
