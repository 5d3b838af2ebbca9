package classify

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

// gazetteer is the fixed entity table, partitioned by type. Matching is
// case-insensitive substring search; longer phrases are listed so they win
// their own offset before shorter overlapping terms are deduplicated.
var gazetteer = map[domain.EntityType][]string{
	domain.EntityLocation: {
		"marina beach", "bay of bengal", "arabian sea", "indian ocean",
		"tamil nadu", "andhra pradesh", "west bengal",
		"chennai", "mumbai", "kochi", "visakhapatnam", "vizag", "puri",
		"goa", "kerala", "odisha", "gujarat", "andaman", "puducherry",
		"kovalam", "mangalore", "paradip", "kanyakumari", "digha",
	},
	domain.EntityOrganization: {
		"incois", "imd", "ndrf", "indian navy", "coast guard",
		"disaster management authority", "met department", "port trust",
	},
	domain.EntityPerson: {
		"district collector", "chief minister", "harbour master", "fisherfolk leader",
	},
	domain.EntityHazard: {
		"storm surge", "high waves", "tsunami", "cyclone", "flood",
		"earthquake", "landslide", "erosion", "tremor", "inundation",
	},
}

// entityConfidence is the fixed confidence assigned per entity type.
// Gazetteer matches are exact, so confidence reflects how ambiguous the
// term class tends to be rather than any per-match uncertainty.
var entityConfidence = map[domain.EntityType]float64{
	domain.EntityLocation:     0.85,
	domain.EntityOrganization: 0.8,
	domain.EntityPerson:       0.7,
	domain.EntityHazard:       0.75,
	domain.EntityNumber:       0.95,
}

var numberTokenRe = regexp.MustCompile(`\S+`)

// ExtractEntities scans text for gazetteer terms and standalone numbers.
// Entities are deduplicated by lower-cased text (first occurrence wins) and
// returned ordered by offset.
func ExtractEntities(text string) []domain.Entity {
	lower, offsets := foldWithOffsets(text)
	seen := make(map[string]bool)
	var entities []domain.Entity

	for _, entityType := range []domain.EntityType{
		domain.EntityLocation,
		domain.EntityOrganization,
		domain.EntityPerson,
		domain.EntityHazard,
	} {
		for _, term := range gazetteer[entityType] {
			offset := strings.Index(lower, term)
			if offset < 0 || seen[term] {
				continue
			}
			seen[term] = true
			// Map the match back to byte positions in the original text:
			// lowering a rune can change its UTF-8 length, so offsets in
			// the folded string do not transfer directly.
			start, end := offsets[offset], offsets[offset+len(term)]
			entities = append(entities, domain.Entity{
				Text:       text[start:end],
				Type:       entityType,
				Confidence: entityConfidence[entityType],
				Offset:     start,
			})
		}
	}

	entities = append(entities, extractNumbers(text, seen)...)

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Offset < entities[j].Offset
	})
	return entities
}

// foldWithOffsets lowercases text rune by rune and returns the folded
// string alongside a table mapping every byte position in it (inclusive of
// the end) to the byte position of the corresponding rune in the original.
func foldWithOffsets(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	for i, r := range text {
		lr := unicode.ToLower(r)
		b.WriteRune(lr)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(text))
	return b.String(), offsets
}

// extractNumbers emits a Number entity for every standalone numeric token.
func extractNumbers(text string, seen map[string]bool) []domain.Entity {
	var entities []domain.Entity
	for _, loc := range numberTokenRe.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		trimmed := strings.Trim(token, ".,!?;:\"'()")
		if trimmed == "" {
			continue
		}
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, domain.Entity{
			Text:       trimmed,
			Type:       domain.EntityNumber,
			Confidence: entityConfidence[domain.EntityNumber],
			Offset:     loc[0] + strings.Index(token, trimmed),
		})
	}
	return entities
}
