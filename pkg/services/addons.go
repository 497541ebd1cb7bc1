package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/morezero/desktop-shell/pkg/catalog"
	"github.com/morezero/desktop-shell/pkg/semver"
)

// AddonStatus is an add-on as reported to the hosted content.
type AddonStatus struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Versions         []string `json:"versions"`
	Installed        bool     `json:"installed"`
	InstalledVersion string   `json:"installedVersion,omitempty"`
	InstalledAt      string   `json:"installedAt,omitempty"`
}

type installedAddon struct {
	version     string
	installedAt time.Time
}

// AddonService installs and removes add-ons from the add-on index.
type AddonService struct {
	index     *catalog.Index
	installed map[string]installedAddon
	clock     func() time.Time
}

// NewAddonService creates an AddonService over index. A nil clock uses time.Now.
func NewAddonService(index *catalog.Index, clock func() time.Time) AddonService {
	if clock == nil {
		clock = time.Now
	}
	return AddonService{index: index, installed: make(map[string]installedAddon), clock: clock}
}

// List returns every known add-on with its install status, index order first
// and then installed add-ons no longer in the index.
func (s *AddonService) List() []AddonStatus {
	manifests := s.index.List()
	out := make([]AddonStatus, 0, len(manifests))
	seen := make(map[string]bool, len(manifests))
	for _, m := range manifests {
		seen[m.ID] = true
		out = append(out, s.status(m))
	}

	var orphans []string
	for id := range s.installed {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		out = append(out, s.status(catalog.AddonManifest{ID: id, Versions: []string{}}))
	}
	return out
}

func (s *AddonService) status(m catalog.AddonManifest) AddonStatus {
	st := AddonStatus{ID: m.ID, Name: m.Name, Description: m.Description, Versions: m.Versions}
	if st.Versions == nil {
		st.Versions = []string{}
	}
	if inst, ok := s.installed[m.ID]; ok {
		st.Installed = true
		st.InstalledVersion = inst.version
		st.InstalledAt = inst.installedAt.UTC().Format(time.RFC3339)
	}
	return st
}

// Install resolves ref ("id" or "id@range") and installs the best matching
// version, replacing any installed version.
func (s *AddonService) Install(ref string) (AddonStatus, error) {
	parsed, err := semver.ParseAddonRef(ref)
	if err != nil {
		return AddonStatus{}, NewServiceError(CodeInvalidArgument, fmt.Sprintf("Invalid add-on reference: %s", ref))
	}
	m := s.index.Get(parsed.ID)
	if m == nil {
		return AddonStatus{}, NewServiceError(CodeNotFound, fmt.Sprintf("Add-on not found: %s", parsed.ID))
	}
	v, err := semver.ResolveVersion(m.Versions, parsed.Range)
	if err != nil {
		return AddonStatus{}, NewServiceError(CodeNotFound, fmt.Sprintf("No version of %s matches %q", parsed.ID, parsed.Range))
	}

	s.installed[parsed.ID] = installedAddon{version: v.Original(), installedAt: s.clock()}
	return s.status(*m), nil
}

// Uninstall removes an installed add-on.
func (s *AddonService) Uninstall(id string) error {
	if id == "" {
		return NewServiceError(CodeInvalidArgument, "Missing add-on id")
	}
	if _, ok := s.installed[id]; !ok {
		return NewServiceError(CodeNotFound, fmt.Sprintf("Add-on not installed: %s", id))
	}
	delete(s.installed, id)
	return nil
}
