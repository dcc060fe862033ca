// Package i18n loads the bot's message catalogues.
//
// A catalogue file holds one or more top-level language keys; nested mappings
// below them are flattened into dotted keys such as "notice.cancelled".
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	// F resolves key and substitutes {name} placeholders from name/value pairs.
	F(key string, pairs ...string) string
	Lang() string
}

type catalogue map[string]string

// Manager stores all available translations.
type Manager struct {
	translations map[string]catalogue
	defaultLang  string
}

// Load loads the catalogues compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(locales, "locales", defaultLang)
}

// LoadFS loads every YAML file found in dir of fsys. Later files override keys of earlier ones.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	translations := make(map[string]catalogue)
	files := 0
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files++

		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read file %s: %w", name, err)
		}
		if err := decodeInto(translations, data); err != nil {
			return nil, fmt.Errorf("i18n: parse file %s: %w", name, err)
		}
	}
	if files == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}

	if defaultLang == "" {
		defaultLang = "en"
	}
	if len(translations[defaultLang]) == 0 {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{translations: translations, defaultLang: defaultLang}, nil
}

// Translator returns a translator for lang, or for the default language when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	lang = normalizeLang(lang)
	if _, ok := m.translations[lang]; !ok {
		lang = m.defaultLang
	}

	return translator{
		lang:     lang,
		primary:  m.translations[lang],
		fallback: m.translations[m.defaultLang],
	}
}

// Languages returns all loaded languages, sorted.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	out := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

type translator struct {
	lang     string
	primary  catalogue
	fallback catalogue
}

func (t translator) Lang() string {
	return t.lang
}

// T returns the translation of key; unknown keys come back unchanged.
func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if v := t.primary[key]; v != "" {
		return v
	}
	if v := t.fallback[key]; v != "" {
		return v
	}
	return key
}

func (t translator) F(key string, pairs ...string) string {
	text := t.T(key)
	if len(pairs) < 2 {
		return text
	}

	replacements := make([]string, 0, len(pairs)&^1)
	for i := 0; i+1 < len(pairs); i += 2 {
		replacements = append(replacements, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(replacements...).Replace(text)
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// decodeInto merges one catalogue document into translations.
func decodeInto(translations map[string]catalogue, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("top level must map languages to messages, got %s", root.Tag)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := normalizeLang(root.Content[i].Value)
		if lang == "" {
			continue
		}

		cat := translations[lang]
		if cat == nil {
			cat = make(catalogue)
		}
		flatten("", root.Content[i+1], cat)
		if len(cat) > 0 {
			translations[lang] = cat
		}
	}

	return nil
}

func flatten(prefix string, node *yaml.Node, out catalogue) {
	switch node.Kind {
	case yaml.ScalarNode:
		if prefix != "" {
			out[prefix] = node.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, node.Content[i+1], out)
		}
	}
}
