package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SearchCriteria holds the normalised keywords of a book search.
// Every keyword must match (AND semantics).
type SearchCriteria struct {
	keywords []string
}

// BuildSearchCriteria folds case and diacritics and splits on anything that is not a letter or a digit,
// so that no tsquery operator reaches the database. Duplicates are dropped, order is kept.
func BuildSearchCriteria(keywords ...string) SearchCriteria {
	seen := make(map[string]struct{})
	terms := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		for _, term := range strings.FieldsFunc(fold(keyword), isTermSeparator) {
			if _, ok := seen[term]; ok {
				continue
			}

			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}

	return SearchCriteria{keywords: terms}
}

// IsEmpty reports whether no usable keyword was given. An empty search lists every book.
func (c SearchCriteria) IsEmpty() bool {
	return len(c.keywords) == 0
}

// Keywords returns a copy of the normalised keywords.
func (c SearchCriteria) Keywords() []string {
	keywords := make([]string, len(c.keywords))
	copy(keywords, c.keywords)

	return keywords
}

// TSQuery renders the keywords as the argument of to_tsquery.
func (c SearchCriteria) TSQuery() string {
	return strings.Join(c.keywords, "&")
}

func fold(keyword string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(stripMarks, keyword)
	if err != nil {
		folded = keyword
	}

	return strings.ToLower(folded)
}

func isTermSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
