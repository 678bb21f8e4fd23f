package domain

import (
	"fmt"
	"strings"
)

// Locale はコンテンツ生成対象の言語コード
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"
	LocaleDE Locale = "de"
	LocaleFR Locale = "fr"
	LocaleIT Locale = "it"
	LocalePT Locale = "pt"
	LocaleRU Locale = "ru"
	LocaleZH Locale = "zh"
)

// SupportedLocales はサポートする全ロケールを返します
func SupportedLocales() []Locale {
	return []Locale{LocaleEN, LocaleES, LocaleDE, LocaleFR, LocaleIT, LocalePT, LocaleRU, LocaleZH}
}

var localeNames = map[Locale]string{
	LocaleEN: "English",
	LocaleES: "Spanish",
	LocaleDE: "German",
	LocaleFR: "French",
	LocaleIT: "Italian",
	LocalePT: "Portuguese",
	LocaleRU: "Russian",
	LocaleZH: "Chinese (Simplified)",
}

// Valid はサポート対象のロケールかどうかを返します
func (l Locale) Valid() bool {
	_, ok := localeNames[l]
	return ok
}

// LanguageName はプロンプトで使用する言語名を返します
func (l Locale) LanguageName() string {
	if name, ok := localeNames[l]; ok {
		return name
	}
	return string(l)
}

// ParseLocales はカンマ区切りのロケール指定を解析します
// 空文字列の場合は全ロケールを返します
func ParseLocales(s string) ([]Locale, error) {
	if strings.TrimSpace(s) == "" {
		return SupportedLocales(), nil
	}

	seen := make(map[Locale]bool)
	var locales []Locale
	for _, part := range strings.Split(s, ",") {
		code := Locale(strings.ToLower(strings.TrimSpace(part)))
		if code == "" {
			continue
		}
		if !code.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedLocale, code)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		locales = append(locales, code)
	}

	if len(locales) == 0 {
		return nil, fmt.Errorf("%w: no locale given", ErrUnsupportedLocale)
	}
	return locales, nil
}
