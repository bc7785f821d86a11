package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocales(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ru := "ru:\n  menu_misc:\n    cancel: \"❌ Отмена\"\n    wallet: \"💼 Кошелек\"\n  misc:\n    greeting: \"Привет, {{.name}}\"\n"
	en := "en:\n  menu_misc:\n    cancel: \"❌ Cancel\"\n    wallet: \"💼 Wallet\"\n  misc:\n    greeting: \"Hello, {{.name}}\"\n    only_en: \"english\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ru.yaml"), []byte(ru), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte(en), 0o600))
	return dir
}

func TestRenderAndFallback(t *testing.T) {
	m, err := LoadFromDir(writeLocales(t), "ru")
	require.NoError(t, err)

	en := m.Translator("EN")
	assert.Equal(t, "en", en.Lang())
	assert.Equal(t, "Hello, satoshi", en.Render("misc.greeting", Args{"name": "satoshi"}))

	de := m.Translator("de")
	assert.Equal(t, "ru", de.Lang())
	assert.Equal(t, "misc.only_en", de.T("misc.only_en"))
	assert.Equal(t, "misc.missing", en.T("misc.missing"))
}

func TestVariantsAndPrefix(t *testing.T) {
	m, err := LoadFromDir(writeLocales(t), "ru")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"❌ Отмена", "❌ Cancel"}, m.Variants("menu_misc.cancel"))
	assert.True(t, m.IsLabel("menu_misc.cancel", " ❌ Cancel "))
	assert.False(t, m.IsLabel("menu_misc.cancel", "Cancel"))

	assert.Equal(t, "💼", m.Prefix("menu_misc.wallet"))
	assert.True(t, m.HasPrefix("menu_misc.wallet", "💼 Wallet"))
	assert.False(t, m.HasPrefix("menu_misc.missing", "anything"))
}

func TestLoadFromDirRequiresDefaultLanguage(t *testing.T) {
	_, err := LoadFromDir(writeLocales(t), "de")
	assert.Error(t, err)
}

func TestBundledLocalesShareKeys(t *testing.T) {
	m, err := LoadFromDir("locales", "ru")
	require.NoError(t, err)

	for key := range m.translations["ru"] {
		_, ok := m.translations["en"][key]
		assert.True(t, ok, "en is missing %s", key)
	}
	for key := range m.translations["en"] {
		_, ok := m.translations["ru"][key]
		assert.True(t, ok, "ru is missing %s", key)
	}
}
