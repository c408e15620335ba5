package reid

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeSpecies canonicalizes a species tag for use in a variant name:
// diacritics stripped, lowercased, separators collapsed to underscores.
// Variant names are cache keys, so two spellings of the same species must
// normalize identically or their embeddings end up in unrelated cache rows.
func NormalizeSpecies(species string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ := transform.String(t, species)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// Variant builds the species-specific final embedding variant name.
func Variant(prefix, species string) string {
	return prefix + NormalizeSpecies(species)
}
