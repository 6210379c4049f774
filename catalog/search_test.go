package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/celsus/core/catalog"
)

func Test_BuildSearchCriteria_NormalizesKeywords(t *testing.T) {
	testCases := []struct {
		description string
		keywords    []string
		expected    []string
	}{
		{"lower cases", []string{"Hugo"}, []string{"hugo"}},
		{"strips diacritics", []string{"Misérables", "Ça"}, []string{"miserables", "ca"}},
		{"splits on whitespace", []string{"victor  hugo"}, []string{"victor", "hugo"}},
		{"drops tsquery operators", []string{"a&b|c", "!(d)", "e:*", "f'g"}, []string{"a", "b", "c", "d", "e", "f", "g"}},
		{"drops duplicates", []string{"hugo", "HUGO", "Hugo"}, []string{"hugo"}},
		{"keeps digits", []string{"1984"}, []string{"1984"}},
		{"ignores blank keywords", []string{"", "  ", "&"}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			criteria := catalog.BuildSearchCriteria(tc.keywords...)

			// assert
			assert.Equal(t, tc.expected, criteria.Keywords())
		})
	}
}

func Test_SearchCriteria_TSQuery_JoinsWithAnd(t *testing.T) {
	// act
	criteria := catalog.BuildSearchCriteria("Victor", "Hugo")

	// assert
	assert.False(t, criteria.IsEmpty())
	assert.Equal(t, "victor&hugo", criteria.TSQuery())
}

func Test_SearchCriteria_EmptyWithoutKeywords(t *testing.T) {
	// act
	criteria := catalog.BuildSearchCriteria()

	// assert
	assert.True(t, criteria.IsEmpty())
	assert.Equal(t, "", criteria.TSQuery())
}

func Test_SearchCriteria_KeywordsReturnsCopy(t *testing.T) {
	// arrange
	criteria := catalog.BuildSearchCriteria("hugo")

	// act
	keywords := criteria.Keywords()
	keywords[0] = "zola"

	// assert
	assert.Equal(t, "hugo", criteria.TSQuery(), "criteria should not be mutable from outside")
}
