package i18n

import (
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v2"
)

type yamlDictionary struct {
	Entries map[string]string
}

func (d *yamlDictionary) Lookup(key string) (data string, ok bool) {
	if value, ok := d.Entries[key]; ok {
		// \x02 is ASCII code for hex 02, which is STX (start of text)
		return "\x02" + value, true
	}
	return "", false
}

// NewCatalogFromFolder reads all translation yaml files from dir and builds a
// catalog from them. Each file is named after the BCP 47 tag of its language,
// e. g. "zh-CN.yaml" for simplified chinese, "en-US.yaml" for american english.
func NewCatalogFromFolder(dir fs.FS, root, fallbackLang string) (catalog.Catalog, []language.Tag, error) {
	files, err := fs.ReadDir(dir, root)
	if err != nil {
		return nil, nil, err
	}
	translations := map[string]catalog.Dictionary{}
	var tags []language.Tag
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		yamlFile, err := fs.ReadFile(dir, path.Join(root, file.Name()))
		if err != nil {
			return nil, nil, err
		}
		lang := strings.TrimSuffix(file.Name(), path.Ext(file.Name()))
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, nil, err
		}
		dict, err := ParseYAMLDict(yamlFile)
		if err != nil {
			return nil, nil, err
		}
		translations[lang] = dict
		tags = append(tags, tag)
	}
	fallback, err := language.Parse(fallbackLang)
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.NewFromMap(translations, catalog.Fallback(fallback))
	if err != nil {
		return nil, nil, err
	}
	return cat, tags, nil
}

func ParseYAMLDict(file []byte) (*yamlDictionary, error) {
	data := map[string]string{}
	err := yaml.Unmarshal(file, &data)
	if err != nil {
		return nil, err
	}
	return &yamlDictionary{Entries: data}, nil
}
