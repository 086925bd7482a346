// Package pipeline turns a raw order extraction into a validation verdict:
// catalog matches, field errors, a completeness score, clarification
// questions, and the auto-create decision.
package pipeline

import (
	"sort"
	"strings"
	"unicode"

	"igcommerce_backend/internal/classifier"
)

// normalize lowercases and strips everything that is not a letter or digit so
// "Red Shoes - Size 42" and "red shoes size 42" compare equal.
func normalize(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// similarity scores an extracted product name against one catalog entry.
// Exact normalized match wins outright; containment in either direction is
// nearly as strong; a hit in the description is weaker; otherwise fall back
// to word overlap.
func similarity(extracted string, product classifier.CatalogProduct) float64 {
	name := normalize(extracted)
	catalogName := normalize(product.Name)
	if name == "" || catalogName == "" {
		return 0
	}

	if name == catalogName {
		return 1.0
	}
	if strings.Contains(catalogName, name) || strings.Contains(name, catalogName) {
		return 0.9
	}
	if desc := normalize(product.Description); desc != "" && strings.Contains(desc, name) {
		return 0.7
	}

	return wordOverlap(name, catalogName)
}

func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	set := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		set[w] = true
	}
	shared := 0
	for _, w := range wordsB {
		if set[w] {
			shared++
			delete(set, w)
		}
	}

	longest := len(wordsA)
	if len(wordsB) > longest {
		longest = len(wordsB)
	}
	return float64(shared) / float64(longest)
}

// matchThreshold is the floor below which a catalog candidate is noise.
const matchThreshold = 0.3

// bindThreshold is the confidence needed to bind a catalog id without asking.
const bindThreshold = 0.7

// maxMatches caps the candidates kept per extracted product.
const maxMatches = 3

// matchCatalog scores every extracted product against the catalog, keeping
// the strongest candidates and binding the catalog id only when the best
// match is unambiguous.
func matchCatalog(products []classifier.ExtractedProduct, catalog []classifier.CatalogProduct) []classifier.ExtractedProduct {
	out := make([]classifier.ExtractedProduct, len(products))
	copy(out, products)

	for i := range out {
		var matches []classifier.CatalogMatch
		for _, p := range catalog {
			score := similarity(out[i].Name, p)
			if score > matchThreshold {
				matches = append(matches, classifier.CatalogMatch{
					ProductID:   p.ID,
					ProductName: p.Name,
					Similarity:  score,
				})
			}
		}

		sort.SliceStable(matches, func(a, b int) bool {
			return matches[a].Similarity > matches[b].Similarity
		})
		if len(matches) > maxMatches {
			matches = matches[:maxMatches]
		}

		out[i].CatalogMatches = matches
		out[i].MatchedProductID = ""
		if len(matches) > 0 && matches[0].Similarity > bindThreshold {
			out[i].MatchedProductID = matches[0].ProductID
		}
	}
	return out
}
