package classify

import "unicode"

// Language is an ISO 639-1 code for the languages the engine recognizes.
type Language string

const (
	LangEnglish   Language = "en"
	LangHindi     Language = "hi"
	LangTamil     Language = "ta"
	LangTelugu    Language = "te"
	LangBengali   Language = "bn"
	LangOdia      Language = "or"
	LangMalayalam Language = "ml"
)

// scriptTable maps Unicode blocks to languages. Coverage is limited to the
// scripts seen in coastal-region social content; anything else falls back to
// English, the primary classification language.
var scriptTable = []struct {
	ranges *unicode.RangeTable
	lang   Language
}{
	{unicode.Devanagari, LangHindi},
	{unicode.Tamil, LangTamil},
	{unicode.Telugu, LangTelugu},
	{unicode.Bengali, LangBengali},
	{unicode.Oriya, LangOdia},
	{unicode.Malayalam, LangMalayalam},
}

// DetectLanguage inspects the script of the text's letters and returns the
// dominant recognized language, defaulting to English. Mixed-script text
// (common in transliterated posts) resolves to whichever script contributes
// the most letters.
func DetectLanguage(text string) Language {
	counts := make(map[Language]int, len(scriptTable))
	for _, r := range text {
		for _, entry := range scriptTable {
			if unicode.Is(entry.ranges, r) {
				counts[entry.lang]++
				break
			}
		}
	}

	best := LangEnglish
	bestCount := 0
	for _, entry := range scriptTable {
		if c := counts[entry.lang]; c > bestCount {
			best = entry.lang
			bestCount = c
		}
	}
	return best
}

// SupportedMultilingual reports whether the multilingual classifier handles
// the language.
func SupportedMultilingual(lang Language) bool {
	switch lang {
	case LangHindi, LangTamil, LangTelugu, LangBengali, LangOdia, LangMalayalam:
		return true
	default:
		return false
	}
}
