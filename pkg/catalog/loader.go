package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const logPrefix = "catalog:loader"

// LoadCatalogFile loads the catalog from file paths or environment.
// It tries paths in order: first any paths passed in, then CATALOG_FILE env, then defaults.
// The format follows the extension: .yaml/.yml, .toml, anything else is JSON.
func LoadCatalogFile(paths ...string) (*CatalogFile, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("CATALOG_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/catalog.json", "catalog.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		cf, err := ParseCatalog(p, data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse catalog file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded catalog from %s (%d items, %d addons)", logPrefix, p, len(cf.Items), len(cf.Addons)))
		return cf, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default catalog", logPrefix))
	return GetDefaultCatalog(), nil
}

// ParseCatalog decodes data in the format implied by name's extension.
func ParseCatalog(name string, data []byte) (*CatalogFile, error) {
	var cf CatalogFile
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cf)
	case ".toml":
		err = toml.Unmarshal(data, &cf)
	default:
		err = json.Unmarshal(data, &cf)
	}
	if err != nil {
		return nil, err
	}
	if cf.Items == nil {
		cf.Items = []MediaItem{}
	}
	return &cf, nil
}

// GetDefaultCatalog returns the built-in catalog.
func GetDefaultCatalog() *CatalogFile {
	return &CatalogFile{
		Name:    "desktop-shell-catalog",
		Version: "1.0.0",
		Items: []MediaItem{
			{
				ID:     "tt1375666",
				Title:  "Inception",
				Year:   2010,
				Poster: "https://m.media-amazon.com/images/M/MV5BMjAxMzY3NjcxNF5BMl5BanBnXkFtZTcwNTI5OTM0Mw@@._V1_FMjpg_UX1000_.jpg",
			},
			{
				ID:     "tt0816692",
				Title:  "Interstellar",
				Year:   2014,
				Poster: "https://m.media-amazon.com/images/M/MV5BZjdkOTU3MDktN2IxOS00OGEyLWFmMjktY2FiMmZkNWIyODZiXkEyXkFqcGdeQXVyMTMxODk2OTU@._V1_FMjpg_UX1000_.jpg",
			},
			{
				ID:     "tt0137523",
				Title:  "Fight Club",
				Year:   1999,
				Poster: "https://m.media-amazon.com/images/M/MV5BNDIzNDU0YzEtYzE5Ni00ZjlkLTk5ZjgtNjM3NWE4YzA3Nzk3XkEyXkFqcGdeQXVyMjUzOTY1NTc@._V1_FMjpg_UX1000_.jpg",
			},
		},
		Addons: []AddonManifest{
			{
				ID:          "cinemeta",
				Name:        "Cinemeta",
				Description: "Metadata for movies and series",
				Versions:    []string{"1.0.0", "1.2.0", "1.2.3", "2.0.0"},
			},
			{
				ID:          "opensubtitles",
				Name:        "OpenSubtitles",
				Description: "Subtitles from opensubtitles.org",
				Versions:    []string{"0.9.0", "1.0.0", "1.1.4"},
			},
			{
				ID:          "local-files",
				Name:        "Local Files",
				Description: "Play media from the local disk",
				Versions:    []string{"1.0.0-beta.1", "1.0.0"},
			},
		},
	}
}
