package checkin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

const (
	MinBucket = 1
	MaxBucket = 5
)

// CatalogEntry holds the message variants for one state: either a flat list or lists keyed by
// intensity bucket (1..5). Exactly one of Flat and Buckets is set.
type CatalogEntry struct {
	Flat    []string
	Buckets map[int][]string
}

// Bucketed reports whether the entry is keyed by intensity.
func (e CatalogEntry) Bucketed() bool {
	return e.Buckets != nil
}

// Total is the number of variants across all buckets.
func (e CatalogEntry) Total() int {
	if !e.Bucketed() {
		return len(e.Flat)
	}
	n := 0
	for _, msgs := range e.Buckets {
		n += len(msgs)
	}
	return n
}

// Catalog maps states to message variants. States keep the order of the source document.
// A Catalog is never modified after it is parsed.
type Catalog struct {
	entries *orderedmap.OrderedMap[string, CatalogEntry]
}

// LoadCatalog reads a catalog file. ".yaml" and ".yml" files are parsed as YAML, anything else
// as JSON.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("LoadCatalog: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: read file: %w", err)
	}

	var c *Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = ParseCatalogYAML(b)
	default:
		c, err = ParseCatalogJSON(b)
	}
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalogJSON parses a catalog document of the form
//
//	{"ansioso": ["...", "..."], "triste": {"1": ["..."], "2": ["..."]}}
func ParseCatalogJSON(b []byte) (*Catalog, error) {
	if !gjson.ValidBytes(b) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return nil, fmt.Errorf("catalog must be a JSON object, got %s", root.Type)
	}

	c := newCatalog()
	var perr error
	root.ForEach(func(key, value gjson.Result) bool {
		state := key.String()
		entry, err := jsonEntry(value)
		if err != nil {
			perr = fmt.Errorf("state %q: %w", state, err)
			return false
		}
		c.entries.Set(state, entry)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return c, nil
}

func jsonEntry(v gjson.Result) (CatalogEntry, error) {
	switch {
	case v.IsArray():
		msgs, err := jsonStrings(v)
		if err != nil {
			return CatalogEntry{}, err
		}
		return CatalogEntry{Flat: msgs}, nil
	case v.IsObject():
		buckets := map[int][]string{}
		var err error
		v.ForEach(func(key, value gjson.Result) bool {
			var n int
			n, err = parseBucketKey(key.String())
			if err != nil {
				return false
			}
			if !value.IsArray() {
				err = fmt.Errorf("bucket %q must be an array of strings", key.String())
				return false
			}
			var msgs []string
			msgs, err = jsonStrings(value)
			if err != nil {
				err = fmt.Errorf("bucket %q: %w", key.String(), err)
				return false
			}
			buckets[n] = append(buckets[n], msgs...)
			return true
		})
		if err != nil {
			return CatalogEntry{}, err
		}
		return CatalogEntry{Buckets: buckets}, nil
	default:
		return CatalogEntry{}, fmt.Errorf("expected array or bucket object, got %s", v.Type)
	}
}

func jsonStrings(v gjson.Result) ([]string, error) {
	items := v.Array()
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.String {
			return nil, fmt.Errorf("item %d is %s, want string", i, item.Type)
		}
		out = append(out, item.String())
	}
	return out, nil
}

// ParseCatalogYAML parses the same document shape as ParseCatalogJSON, written as YAML.
func ParseCatalogYAML(b []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty YAML document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("catalog must be a YAML mapping")
	}

	c := newCatalog()
	for i := 0; i+1 < len(root.Content); i += 2 {
		state := root.Content[i].Value
		entry, err := yamlEntry(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", state, err)
		}
		c.entries.Set(state, entry)
	}
	return c, nil
}

func yamlEntry(n *yaml.Node) (CatalogEntry, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		msgs, err := yamlStrings(n)
		if err != nil {
			return CatalogEntry{}, err
		}
		return CatalogEntry{Flat: msgs}, nil
	case yaml.MappingNode:
		buckets := map[int][]string{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			b, err := parseBucketKey(key)
			if err != nil {
				return CatalogEntry{}, err
			}
			msgs, err := yamlStrings(n.Content[i+1])
			if err != nil {
				return CatalogEntry{}, fmt.Errorf("bucket %q: %w", key, err)
			}
			buckets[b] = append(buckets[b], msgs...)
		}
		return CatalogEntry{Buckets: buckets}, nil
	default:
		return CatalogEntry{}, errors.New("expected sequence or bucket mapping")
	}
}

// yamlStrings accepts only a sequence of string scalars, so 42 or true are rejected as they are in JSON.
func yamlStrings(n *yaml.Node) ([]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected sequence of strings")
	}
	out := make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
			return nil, fmt.Errorf("item %d is %s, want string", i, item.ShortTag())
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func parseBucketKey(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < MinBucket || n > MaxBucket {
		return 0, fmt.Errorf("bucket key %q must be 1..5", s)
	}
	return n, nil
}

// NewCatalog builds a catalog from entries in the given state order.
func NewCatalog(states []string, entries map[string]CatalogEntry) *Catalog {
	c := newCatalog()
	for _, s := range states {
		if e, ok := entries[s]; ok {
			c.entries.Set(s, e)
		}
	}
	return c
}

func newCatalog() *Catalog {
	return &Catalog{entries: orderedmap.New[string, CatalogEntry]()}
}

// States lists the catalog states in document order.
func (c *Catalog) States() []string {
	out := make([]string, 0, c.entries.Len())
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (c *Catalog) Has(state string) bool {
	_, ok := c.entries.Get(state)
	return ok
}

// Count is the total number of variants for state, 0 when absent.
func (c *Catalog) Count(state string) int {
	e, ok := c.entries.Get(state)
	if !ok {
		return 0
	}
	return e.Total()
}

// Buckets returns the sorted bucket numbers of a bucketed state, nil for flat or absent states.
func (c *Catalog) Buckets(state string) []int {
	e, ok := c.entries.Get(state)
	if !ok || !e.Bucketed() {
		return nil
	}
	out := make([]int, 0, len(e.Buckets))
	for b := range e.Buckets {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// Resolve returns the candidate messages for state at intensity. Bucketed states use the
// intensity clamped to 1..5 as the bucket; flat states ignore it. The result may be empty.
func (c *Catalog) Resolve(state string, intensity int) ([]string, error) {
	e, ok := c.entries.Get(state)
	if !ok {
		return nil, &UnknownStateError{State: state}
	}
	if !e.Bucketed() {
		return e.Flat, nil
	}
	return e.Buckets[min(MaxBucket, max(MinBucket, intensity))], nil
}

// ValidateMinimum checks that every listed state carries at least minimum variants. An empty
// states list checks the whole catalog. The first failing state is reported as a
// *ConfigurationError.
func (c *Catalog) ValidateMinimum(states []string, minimum int) error {
	if len(states) == 0 {
		states = c.States()
	}
	for _, s := range states {
		if n := c.Count(s); n < minimum {
			return &ConfigurationError{State: s, Count: n, Minimum: minimum}
		}
	}
	return nil
}
