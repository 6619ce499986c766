// Package language holds the static table of languages offered for translation.
package language

import (
	"fmt"
	"strings"
)

// Language is one catalog entry.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"` // ISO 639-1
}

// CombinedName renders the entry the way result lists and pickers show it, e.g. "German (de)".
func (l Language) CombinedName() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.Code)
}

// Catalog is an immutable ordered set of languages. The zero value is empty.
type Catalog struct {
	languages []Language
	byCode    map[string]int
}

// NewCatalog builds a catalog from entries. Duplicate codes keep their first occurrence.
func NewCatalog(entries []Language) *Catalog {
	c := &Catalog{
		languages: make([]Language, 0, len(entries)),
		byCode:    make(map[string]int, len(entries)),
	}
	for _, entry := range entries {
		code := NormalizeCode(entry.Code)
		name := strings.TrimSpace(entry.Name)
		if code == "" || name == "" {
			continue
		}
		if _, exists := c.byCode[code]; exists {
			continue
		}
		c.byCode[code] = len(c.languages)
		c.languages = append(c.languages, Language{Name: name, Code: code})
	}
	return c
}

// Lookup returns the combined name for code, or "" when the code is not in the catalog.
func (c *Catalog) Lookup(code string) string {
	lang, ok := c.Get(code)
	if !ok {
		return ""
	}
	return lang.CombinedName()
}

// Get resolves code (tags such as "en-US" are reduced to their primary subtag).
func (c *Catalog) Get(code string) (Language, bool) {
	if c == nil {
		return Language{}, false
	}
	idx, ok := c.byCode[NormalizeCode(code)]
	if !ok {
		return Language{}, false
	}
	return c.languages[idx], true
}

// Has reports whether code is offered.
func (c *Catalog) Has(code string) bool {
	_, ok := c.Get(code)
	return ok
}

// List returns a copy of all entries in catalog order.
func (c *Catalog) List() []Language {
	if c == nil {
		return nil
	}
	out := make([]Language, len(c.languages))
	copy(out, c.languages)
	return out
}

// Codes returns all ISO codes in catalog order.
func (c *Catalog) Codes() []string {
	if c == nil {
		return nil
	}
	codes := make([]string, 0, len(c.languages))
	for _, lang := range c.languages {
		codes = append(codes, lang.Code)
	}
	return codes
}

var defaultCatalog = NewCatalog([]Language{
	{Name: "Afrikaans", Code: "af"},
	{Name: "Albanian", Code: "sq"},
	{Name: "Arabic", Code: "ar"},
	{Name: "Armenian", Code: "hy"},
	{Name: "Azerbaijani", Code: "az"},
	{Name: "Basque", Code: "eu"},
	{Name: "Belarusian", Code: "be"},
	{Name: "Bosnian", Code: "bs"},
	{Name: "Bulgarian", Code: "bg"},
	{Name: "Catalan", Code: "ca"},
	{Name: "Chinese", Code: "zh"},
	{Name: "Croatian", Code: "hr"},
	{Name: "Czech", Code: "cs"},
	{Name: "Danish", Code: "da"},
	{Name: "Dutch", Code: "nl"},
	{Name: "English", Code: "en"},
	{Name: "Estonian", Code: "et"},
	{Name: "Finnish", Code: "fi"},
	{Name: "French", Code: "fr"},
	{Name: "Galician", Code: "gl"},
	{Name: "Georgian", Code: "ka"},
	{Name: "German", Code: "de"},
	{Name: "Greek", Code: "el"},
	{Name: "Haitian (Creole)", Code: "ht"},
	{Name: "Hebrew", Code: "he"},
	{Name: "Hungarian", Code: "hu"},
	{Name: "Icelandic", Code: "is"},
	{Name: "Indonesian", Code: "id"},
	{Name: "Irish", Code: "ga"},
	{Name: "Italian", Code: "it"},
	{Name: "Japanese", Code: "ja"},
	{Name: "Kazakh", Code: "kk"},
	{Name: "Korean", Code: "ko"},
	{Name: "Kyrgyz", Code: "ky"},
	{Name: "Latin", Code: "la"},
	{Name: "Latvian", Code: "lv"},
	{Name: "Lithuanian", Code: "lt"},
	{Name: "Macedonian", Code: "mk"},
	{Name: "Malagasy", Code: "mg"},
	{Name: "Malay", Code: "ms"},
	{Name: "Maltese", Code: "mt"},
	{Name: "Mongolian", Code: "mn"},
	{Name: "Norwegian", Code: "no"},
	{Name: "Persian", Code: "fa"},
	{Name: "Polish", Code: "pl"},
	{Name: "Portuguese", Code: "pt"},
	{Name: "Romanian", Code: "ro"},
	{Name: "Russian", Code: "ru"},
	{Name: "Serbian", Code: "sr"},
	{Name: "Slovak", Code: "sk"},
	{Name: "Slovenian", Code: "sl"},
	{Name: "Spanish", Code: "es"},
	{Name: "Swahili", Code: "sw"},
	{Name: "Swedish", Code: "sv"},
	{Name: "Tagalog", Code: "tl"},
	{Name: "Tajik", Code: "tg"},
	{Name: "Tatar", Code: "tt"},
	{Name: "Thai", Code: "th"},
	{Name: "Turkish", Code: "tr"},
	{Name: "Ukrainian", Code: "uk"},
	{Name: "Uzbek", Code: "uz"},
	{Name: "Vietnamese", Code: "vi"},
	{Name: "Welsh", Code: "cy"},
})

// Default returns the process-wide catalog. It is built once at init and never mutated.
func Default() *Catalog {
	return defaultCatalog
}

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '-' || r == '_' })
	if len(parts) == 0 {
		return ""
	}
	for _, part := range parts {
		for _, r := range part {
			if r < 'a' || r > 'z' {
				return ""
			}
		}
	}
	return strings.Join(parts, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}
