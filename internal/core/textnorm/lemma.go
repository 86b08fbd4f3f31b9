package textnorm

import "strings"

// Lemmatize reduces tokens to base forms for the given language code.
// Unknown languages fall back to lowercasing only, so lemma-based matching
// degrades to token matching instead of failing.
func Lemmatize(tokens []string, lang string) []string {
	if len(tokens) == 0 {
		return nil
	}

	lemmas := make([]string, len(tokens))

	for i, t := range tokens {
		t = strings.ToLower(t)

		switch lang {
		case langEnglish:
			lemmas[i] = lemmatizeEnglish(t)
		case langRussian:
			lemmas[i] = lemmatizeRussian(t)
		default:
			lemmas[i] = t
		}
	}

	return lemmas
}

// LemmatizeWord reduces a single lowercased word to its base form.
func LemmatizeWord(word, lang string) string {
	word = strings.ToLower(word)

	switch lang {
	case langEnglish:
		return lemmatizeEnglish(word)
	case langRussian:
		return lemmatizeRussian(word)
	default:
		return word
	}
}

const minStemLength = 3

// lemmatizeEnglish applies noun-style suffix reduction, which is what matters
// for keyword matching ("tutorials" -> "tutorial", "libraries" -> "library").
func lemmatizeEnglish(word string) string {
	if len(word) <= minStemLength {
		return word
	}

	switch {
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// Russian inflection endings ordered longest-first so the most specific
// ending is stripped.
var russianEndings = []string{
	"иями", "ями", "ами", "иях", "ях", "ах", "ией", "ей", "ой", "ою", "ею",
	"ия", "ие", "ии", "ию", "ья", "ье", "ьи", "ью",
	"ов", "ев", "ам", "ям", "ом", "ем", "им", "ым", "ых", "их",
	"ая", "яя", "ое", "ее", "ые", "ие", "ый", "ий",
	"а", "я", "о", "е", "у", "ю", "ы", "и", "ь",
}

// lemmatizeRussian strips common case and number endings. This is a light
// stemmer rather than a dictionary lemmatizer; related forms collapse to one
// stem, which is enough for keyword matching.
func lemmatizeRussian(word string) string {
	runes := []rune(word)
	if len(runes) <= minStemLength {
		return word
	}

	for _, ending := range russianEndings {
		er := []rune(ending)
		if len(runes)-len(er) < minStemLength {
			continue
		}

		if strings.HasSuffix(word, ending) {
			return string(runes[:len(runes)-len(er)])
		}
	}

	return word
}
