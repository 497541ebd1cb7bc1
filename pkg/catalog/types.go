// Package catalog provides the media catalog and add-on index served to the
// hosted content, and loads them from a JSON, YAML or TOML file or built-in
// defaults.
package catalog

// MediaItem is one entry of the media catalog.
type MediaItem struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Title  string `json:"title" yaml:"title" toml:"title"`
	Year   int    `json:"year" yaml:"year" toml:"year"`
	Poster string `json:"poster" yaml:"poster" toml:"poster"`
}

// AddonManifest describes an installable add-on and the versions it publishes.
type AddonManifest struct {
	ID          string   `json:"id" yaml:"id" toml:"id"`
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Versions    []string `json:"versions" yaml:"versions" toml:"versions"`
}

// CatalogFile is the root of a catalog configuration file.
type CatalogFile struct {
	Name    string          `json:"name" yaml:"name" toml:"name"`
	Version string          `json:"version" yaml:"version" toml:"version"`
	Items   []MediaItem     `json:"items" yaml:"items" toml:"items"`
	Addons  []AddonManifest `json:"addons,omitempty" yaml:"addons,omitempty" toml:"addons,omitempty"`
}

// Index provides fast lookup of add-on manifests.
type Index struct {
	addons map[string]*AddonManifest
	order  []string
}

// NewIndex builds an Index from manifests. Later duplicates replace earlier ones.
func NewIndex(manifests []AddonManifest) *Index {
	idx := &Index{addons: make(map[string]*AddonManifest, len(manifests))}
	for _, m := range manifests {
		m := m
		if _, ok := idx.addons[m.ID]; !ok {
			idx.order = append(idx.order, m.ID)
		}
		idx.addons[m.ID] = &m
	}
	return idx
}

// Get returns the manifest for id, or nil.
func (idx *Index) Get(id string) *AddonManifest {
	if idx == nil {
		return nil
	}
	return idx.addons[id]
}

// List returns manifests in insertion order.
func (idx *Index) List() []AddonManifest {
	if idx == nil {
		return []AddonManifest{}
	}
	out := make([]AddonManifest, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, *idx.addons[id])
	}
	return out
}
