package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"punctuation only", "?!...", ""},
		{"lowercases", "Payment Methods?", "payment methods"},
		{"collapses whitespace", "  what   payment\tmethods \n", "what payment methods"},
		{"punctuation becomes separator", "M-Pesa/cards", "m pesa cards"},
		{"keeps digits", "Open 24/7?", "open 24 7"},
		{"full width forms", "ＨＥＬＬＯ", "hello"},
		{"accented letters survive", "Café Ñandú", "café ñandú"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"What payment methods do you accept?",
		"  Emergency!!  call   +254-20-2845000 ",
		"İstanbul ŞEHİR",
		"ＨＥＬＬＯ, World",
		"Straße & Co.",
		"á combining",
	}

	plain := New(false)
	withStop := New(true)
	for _, in := range inputs {
		once := plain.Normalize(in)
		assert.Equal(t, once, plain.Normalize(once), "plain normalize not idempotent for %q", in)

		once = withStop.Normalize(in)
		assert.Equal(t, once, withStop.Normalize(once), "stopword normalize not idempotent for %q", in)
	}
}

func TestNormalizer_RemoveStopwords(t *testing.T) {
	n := New(true)

	assert.Equal(t, "payment methods accept", n.Normalize("What payment methods do you accept?"))
	assert.Equal(t, []string{"visiting", "hours"}, n.Tokens("What are the visiting hours?"))
	assert.Equal(t, "", n.Normalize("what is the"))
}

func TestNormalizer_CustomStopwords(t *testing.T) {
	n := &Normalizer{
		RemoveStopwords: true,
		Stopwords:       map[string]struct{}{"please": {}},
	}

	assert.Equal(t, "what are the hours", n.Normalize("What are the hours, please?"))
}

func TestNormalizer_NilIsPlain(t *testing.T) {
	var n *Normalizer
	assert.Equal(t, "hello world", n.Normalize("Hello, World"))
	assert.Equal(t, []string{"hello", "world"}, n.Tokens("Hello, World"))
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.False(t, IsStopword("pharmacy"))
}
