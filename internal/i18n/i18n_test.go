package i18n

import (
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFallsBackToDefault(t *testing.T) {
	cases := map[string]Locale{
		"en":  EN,
		"ar":  AR,
		"AR":  AR,
		"fr":  EN,
		"":    EN,
		"xx-": EN,
	}
	for segment, want := range cases {
		assert.Equal(t, want, Resolve(segment), "segment %q", segment)
	}
}

func TestIsLanguageTag(t *testing.T) {
	for _, ok := range []string{"en", "ar", "fr", "pt-BR"} {
		assert.True(t, IsLanguageTag(ok), ok)
	}
	for _, bad := range []string{"", "robots.txt", "favicon.ico", "wp-login.php"} {
		assert.False(t, IsLanguageTag(bad), bad)
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "rtl", AR.Direction())
	assert.Equal(t, "ltr", EN.Direction())
}

func TestTranslateUsesLocaleThenDefaultThenKey(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: \"Hello\"\nonly_en: \"English only\"\ncount: \"{{.Count}} stores\"\n")},
		"locales/ar.yaml": {Data: []byte("greeting: \"مرحبا\"\n")},
	}
	b, err := Load(fsys)
	require.NoError(t, err)

	assert.Equal(t, "مرحبا", b.T(AR, "greeting"))
	assert.Equal(t, "English only", b.T(AR, "only_en"))
	assert.Equal(t, "missing.key", b.T(AR, "missing.key"))
	assert.Equal(t, "Hello", b.T(Locale("fr"), "greeting"))
	assert.Equal(t, "12 stores", b.T(EN, "count", map[string]any{"Count": 12}))
}

func TestTranslateFallsBackPerMessage(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("title: \"Title\"\ncount: \"{{.Count}} stores\"\n")},
		"locales/ar.yaml": {Data: []byte("title: \"العنوان\"\n")},
	}
	b, err := Load(fsys)
	require.NoError(t, err)

	assert.Equal(t, "العنوان", b.T(AR, "title"))
	assert.Equal(t, "3 stores", b.T(AR, "count", map[string]any{"Count": 3}))
	assert.Equal(t, "nope", b.T(AR, "nope"))
}

func TestLoadRequiresDefaultCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/ar.yaml": {Data: []byte("greeting: \"مرحبا\"\n")},
	}
	_, err := Load(fsys)
	require.Error(t, err)
}

func TestEmbeddedCatalogsCoverEveryKey(t *testing.T) {
	b, err := LoadEmbedded()
	require.NoError(t, err)

	for _, key := range []string{"landing.hero.title", "signup.error.phone_country_code", "success.title"} {
		assert.NotEqual(t, key, b.T(EN, key))
		assert.NotEqual(t, key, b.T(AR, key))
		assert.NotEqual(t, b.T(EN, key), b.T(AR, key))
	}
}

func TestMatchHonorsQValues(t *testing.T) {
	b, err := LoadEmbedded()
	require.NoError(t, err)

	assert.Equal(t, AR, b.Match("en;q=0.8, ar;q=0.9"))
	assert.Equal(t, AR, b.Match("ar-SA,ar;q=0.9"))
	assert.Equal(t, EN, b.Match("fr-FR"))
	assert.Equal(t, EN, b.Match(""))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "ar")
	assert.Equal(t, AR, b.MatchRequest(req))
}
