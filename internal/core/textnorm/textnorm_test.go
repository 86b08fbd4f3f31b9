package textnorm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"http url", "check https://example.com/page now", "check now"},
		{"www url", "see www.example.com today", "see today"},
		{"tme link", "join t.me/somechannel please", "join please"},
		{"mention", "thanks @someone for the tip", "thanks for the tip"},
		{"whitespace collapse", "a  \t b \n c", "a b c"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.in, true, true)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CleanText mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCleanTextKeepsURLsWhenDisabled(t *testing.T) {
	got := CleanText("see https://example.com now", false, false)
	assert.Equal(t, "see https://example.com now", got)
}

func TestRemoveEmojis(t *testing.T) {
	got := NormalizeWhitespace(RemoveEmojis("deal 🔥 closed ✅"))
	assert.Equal(t, "deal closed", got)
}

func TestTokenize(t *testing.T) {
	got := Tokenize("hello, world! x go_lang 42", 2)
	want := []string{"hello", "world", "go_lang", "42"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFull(t *testing.T) {
	got := Normalize("Check https://t.co/x THE Cats in Boxes! 🔥", Options{
		Language:         domain.LanguageAuto,
		Lowercase:        true,
		RemoveURLs:       true,
		RemoveMentions:   true,
		RemoveEmojis:     true,
		UseLemmatization: true,
		MinTokenLength:   2,
	})

	assert.Equal(t, "check the cats in boxes", got.Normalized)
	assert.Equal(t, "en", got.Language)

	if diff := cmp.Diff([]string{"check", "the", "cats", "in", "boxes"}, got.Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"check", "the", "cat", "in", "box"}, got.Lemmas); diff != "" {
		t.Errorf("lemmas mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCaseSensitive(t *testing.T) {
	got := Normalize("Hello World", Options{Lowercase: false, MinTokenLength: 1})
	assert.Equal(t, "Hello World", got.Normalized)
}

func TestNormalizeEmpty(t *testing.T) {
	got := Normalize("", DefaultOptions())
	assert.Empty(t, got.Normalized)
	assert.Empty(t, got.Tokens)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "strasse", Fold("Straße"))
	assert.Equal(t, "python", Fold("PyThOn"))
}

func TestPrepareKeywords(t *testing.T) {
	got := PrepareKeywords([]string{" Python ", "python", "", "Go", "go "}, true)

	if diff := cmp.Diff([]string{"python", "go"}, got); diff != "" {
		t.Errorf("PrepareKeywords mismatch (-want +got):\n%s", diff)
	}
}

func TestPrepareKeywordsCaseSensitive(t *testing.T) {
	got := PrepareKeywords([]string{"Python", "python"}, false)

	if diff := cmp.Diff([]string{"Python", "python"}, got); diff != "" {
		t.Errorf("PrepareKeywords mismatch (-want +got):\n%s", diff)
	}
}

func TestLemmatizeEnglish(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cats", "cat"},
		{"boxes", "box"},
		{"libraries", "library"},
		{"classes", "class"},
		{"glass", "glass"},
		{"bus", "bus"},
		{"analysis", "analysis"},
		{"go", "go"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LemmatizeWord(tt.in, "en"), "word %q", tt.in)
	}
}

func TestLemmatizeRussian(t *testing.T) {
	tests := []struct{ in, want string }{
		{"новостями", "новост"},
		{"программы", "программ"},
		{"кот", "кот"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LemmatizeWord(tt.in, "ru"), "word %q", tt.in)
	}
}

func TestLemmatizeUnknownLanguageLowercasesOnly(t *testing.T) {
	got := Lemmatize([]string{"Cats", "Boxes"}, "de")

	if diff := cmp.Diff([]string{"cats", "boxes"}, got); diff != "" {
		t.Errorf("Lemmatize mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english", "the quick brown fox jumps over the lazy dog", "en"},
		{"russian", "новости технологий и науки сегодня", "ru"},
		{"mixed mostly cyrillic", "ский breaking новости дня", "ru"},
		{"numbers only", "123 456", ""},
		{"empty", "", ""},
		{"latin without stopwords", "lorem ipsum dolor sit amet", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.in))
		})
	}
}
