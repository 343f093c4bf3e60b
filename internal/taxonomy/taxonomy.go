// Package taxonomy holds the keyword tables used to rank quotes for
// category, mood, and topic browsing.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var DefaultTaxonomyYAML []byte

// Reserved pseudo-category ids for locally held collections.
const (
	FavoritesID = "_favorites"
	MyQuotesID  = "_myquotes"
)

// Entry is one taxonomy row: an identifier's keyword list plus display data.
type Entry struct {
	Name        string   `yaml:"name"`
	Section     string   `yaml:"section"`
	Description string   `yaml:"description"`
	Categories  []string `yaml:"categories"`
	Keywords    []string `yaml:"keywords"`
}

// Tables holds the three independent taxonomies.
type Tables struct {
	Categories map[string]Entry `yaml:"categories"`
	Moods      map[string]Entry `yaml:"moods"`
	Topics     map[string]Entry `yaml:"topics"`
}

// Default parses the embedded taxonomy. It panics on a malformed embed,
// which can only happen at build time.
func Default() *Tables {
	t, err := Parse(DefaultTaxonomyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy: %v", err))
	}
	return t
}

// Load reads a taxonomy YAML file. An empty path yields the embedded default.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Parse(DefaultTaxonomyYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes taxonomy YAML and lower-cases every keyword.
func Parse(data []byte) (*Tables, error) {
	t := &Tables{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	t.Categories = normalize(t.Categories)
	t.Moods = normalize(t.Moods)
	t.Topics = normalize(t.Topics)
	return t, nil
}

func normalize(m map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(m))
	for id, e := range m {
		kws := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		e.Keywords = kws
		out[id] = e
	}
	return out
}

// Category returns the keyword list for a category id, or nil.
func (t *Tables) Category(id string) []string {
	return t.Categories[id].Keywords
}

// Mood returns the keyword list for a mood id, or nil.
func (t *Tables) Mood(id string) []string {
	return t.Moods[id].Keywords
}

// Topic returns the keyword list from the topic table only, or nil.
func (t *Tables) Topic(id string) []string {
	return t.Topics[id].Keywords
}

// TopicKeywords resolves a topic id, checking the category table first.
// aliased reports whether the category table supplied the keywords.
func (t *Tables) TopicKeywords(id string) (keywords []string, aliased bool) {
	if kws := t.Category(id); len(kws) > 0 {
		return kws, true
	}
	return t.Topic(id), false
}

// TagKeywords expands each tag to its category keywords, or to the tag
// itself when no category mapping exists.
func (t *Tables) TagKeywords(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if kws := t.Category(tag); len(kws) > 0 {
			out = append(out, kws...)
			continue
		}
		out = append(out, tag)
	}
	return out
}

// CategoryIDs returns category ids in sorted order.
func (t *Tables) CategoryIDs() []string {
	return sortedKeys(t.Categories)
}

// MoodIDs returns mood ids in sorted order.
func (t *Tables) MoodIDs() []string {
	return sortedKeys(t.Moods)
}

// IsReserved reports whether id denotes a local pseudo-category.
func IsReserved(id string) bool {
	return strings.HasPrefix(id, "_")
}

// DisplayName returns the category's display name, falling back to the id.
func (t *Tables) DisplayName(id string) string {
	switch id {
	case FavoritesID:
		return "My Favorites"
	case MyQuotesID:
		return "My Quotes"
	}
	if e, ok := t.Categories[id]; ok && e.Name != "" {
		return e.Name
	}
	return id
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
