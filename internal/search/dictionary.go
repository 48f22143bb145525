package search

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cardintel/cardintel/internal/model"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// Dictionary is the bundled fallback catalog of sets and well-known
// cards, used to seed the store and the autocomplete index before a full
// API sync has run.
type Dictionary struct {
	Sets  []model.Set  `yaml:"sets"`
	Cards []model.Card `yaml:"cards"`
}

// LoadDictionary parses the embedded dictionary.
func LoadDictionary() (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(dictionaryYAML, &d); err != nil {
		return nil, eris.Wrap(err, "search: parse bundled dictionary")
	}
	return &d, nil
}
