package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Berserk", "berserk"},
		{"OKAMI", "okami"},
		{"Ōkami", "okami"},
		{"Pokémon Adventures", "pokemon adventures"},
		{"Straße", "strasse"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Vinland Saga", Fold("saga")))
	assert.True(t, Contains("Café Kichijouji", Fold("CAFE")))
	assert.True(t, Contains("anything", ""), "empty needle matches everything")
	assert.False(t, Contains("Monster", Fold("pluto")))
}

func TestTitleAndCategory(t *testing.T) {
	assert.Equal(t, "One Piece", Title("  One \t  Piece \n"))
	assert.Equal(t, "light_novel", Category(" Light  Novel "))
	assert.Equal(t, "manga", Category("MANGA"))
}

func TestISBN(t *testing.T) {
	assert.Equal(t, "9781421580364", ISBN("978-1-4215-8036-4"))
	assert.Equal(t, "097522980X", ISBN("0 9752298 0 x"))
}

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "empty string", input: "", expected: false},
		{name: "plain text", input: "A swordsman seeks revenge.", expected: false},
		{name: "angle brackets but not HTML", input: "Use <stdin> and 2 > 1", expected: false},
		{name: "paragraph tags", input: "<p>A paragraph.</p>", expected: true},
		{name: "self-closing break", input: "Line one<br/>Line two", expected: true},
		{name: "uppercase tags", input: "<P>Loud</P>", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsHTML(tt.input))
		})
	}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "", Description("   "))
	assert.Equal(t, "Plain text stays.", Description("  Plain text stays.  "))
	assert.Equal(t, "Guts is **back**.", Description("<p>Guts is <b>back</b>.</p>"))
}
