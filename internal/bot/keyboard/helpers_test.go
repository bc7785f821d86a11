package keyboard_test

import (
	"fmt"
	"strings"

	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

type fakeTranslator struct {
	translations map[string]string
}

func (f *fakeTranslator) Lang() string { return "en" }

func (f *fakeTranslator) T(key string) string {
	if v, ok := f.translations[key]; ok {
		return v
	}
	return key
}

func (f *fakeTranslator) Render(key string, args i18n.Args) string {
	text := f.T(key)
	for k, v := range args {
		text = strings.ReplaceAll(text, "{{."+k+"}}", fmt.Sprint(v))
	}
	return text
}
