package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Version is one entry in the artifact manifest.
type Version struct {
	Metadata
	IsActive bool `json:"is_active"`
}

// Manager owns the artifact directory: per-version files plus a
// manifest (model_versions.json) that marks which version is active.
type Manager struct {
	dir          string
	manifestPath string
	versions     []Version
}

// NewManager opens (or initializes) an artifact directory.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}

	m := &Manager{
		dir:          dir,
		manifestPath: filepath.Join(dir, "model_versions.json"),
	}
	if err := m.loadManifest(); err != nil {
		log.Warn().Err(err).Msg("failed to load model manifest, starting fresh")
		m.versions = nil
	}
	return m, nil
}

// Save writes a bundle's files under a fresh version stamp, records it
// in the manifest and makes it the active version.
func (m *Manager) Save(b *Bundle) (string, error) {
	version := time.Now().Format("20060102-150405")
	for m.has(version) {
		// Second-resolution stamps can collide in tests; disambiguate.
		version = time.Now().Format("20060102-150405.000000000")
	}
	b.Meta.Version = version

	modelData, err := encodeModel(b.Model)
	if err != nil {
		return "", err
	}
	files := map[string][]byte{
		m.path("model", version, "json"): modelData,
	}

	for name, v := range map[string]any{
		"scaler":   b.Scaler,
		"cleaner":  b.Cleaner,
		"baseline": b.Baseline,
		"meta":     b.Meta,
	} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", name, err)
		}
		files[m.path(name, version, "json")] = data
	}

	// Ordered feature-name list, one per line. Inference rebuilds
	// vectors in exactly this order.
	files[m.path("features", version, "txt")] = []byte(strings.Join(b.Meta.FeatureNames, "\n") + "\n")

	for path, data := range files {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}

	m.versions = append(m.versions, Version{Metadata: b.Meta})
	sort.Slice(m.versions, func(i, j int) bool {
		return m.versions[i].TrainedAt.After(m.versions[j].TrainedAt)
	})

	if err := m.Activate(version); err != nil {
		return "", err
	}

	log.Info().
		Str("version", version).
		Str("kind", b.Meta.Kind).
		Str("dir", m.dir).
		Msg("model artifact saved")

	return version, nil
}

// Activate marks one version active and all others inactive.
func (m *Manager) Activate(version string) error {
	found := false
	for i := range m.versions {
		if m.versions[i].Version == version {
			m.versions[i].IsActive = true
			found = true
		} else {
			m.versions[i].IsActive = false
		}
	}
	if !found {
		return fmt.Errorf("version %s not found", version)
	}
	return m.saveManifest()
}

// Rollback activates the version preceding the currently active one.
func (m *Manager) Rollback() error {
	if len(m.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}

	current := -1
	for i, v := range m.versions {
		if v.IsActive {
			current = i
			break
		}
	}
	if current == -1 {
		return fmt.Errorf("no active version found")
	}
	if current+1 >= len(m.versions) {
		return fmt.Errorf("no previous version available")
	}
	return m.Activate(m.versions[current+1].Version)
}

// Active returns the currently active version's metadata, or
// ErrNotTrained when nothing has been activated.
func (m *Manager) Active() (*Version, error) {
	for i := range m.versions {
		if m.versions[i].IsActive {
			return &m.versions[i], nil
		}
	}
	return nil, ErrNotTrained
}

// Versions lists all recorded versions, newest first.
func (m *Manager) Versions() []Version {
	return m.versions
}

// LoadActive loads the active version's full bundle from disk.
func (m *Manager) LoadActive() (*Bundle, error) {
	v, err := m.Active()
	if err != nil {
		return nil, err
	}
	return m.Load(v.Version)
}

// Load reads one version's bundle from disk.
func (m *Manager) Load(version string) (*Bundle, error) {
	b := &Bundle{}

	modelData, err := os.ReadFile(m.path("model", version, "json"))
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	if b.Model, err = decodeModel(modelData); err != nil {
		return nil, err
	}

	for name, dst := range map[string]any{
		"scaler":   &b.Scaler,
		"cleaner":  &b.Cleaner,
		"baseline": &b.Baseline,
		"meta":     &b.Meta,
	} {
		data, err := os.ReadFile(m.path(name, version, "json"))
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", name, err)
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, fmt.Errorf("parse %s file: %w", name, err)
		}
	}

	return b, nil
}

func (m *Manager) has(version string) bool {
	for _, v := range m.versions {
		if v.Version == version {
			return true
		}
	}
	return false
}

func (m *Manager) path(kind, version, ext string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s-%s.%s", kind, version, ext))
}

func (m *Manager) loadManifest() error {
	data, err := os.ReadFile(m.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &m.versions)
}

func (m *Manager) saveManifest() error {
	data, err := json.MarshalIndent(m.versions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.manifestPath, data, 0o600)
}
