package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names which model an artifact holds
type Kind string

const (
	KindInstant  Kind = "instant"
	KindForecast Kind = "forecast"
)

// VersionLayout formats artifact versions. Versions sort lexicographically in time order.
const VersionLayout = "20060102T150405.000Z"

var (
	ErrNoArtifact    = errors.New("no model artifact")
	ErrVersionExists = errors.New("model version already exists")
)

// Artifact is a fitted model plus everything serving needs to trust it
type Artifact struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Version      string     `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	FeatureNames []string   `json:"feature_names"`
	Params       Params     `json:"params"`
	Metrics      Metrics    `json:"metrics"`
	Model        *Regressor `json:"model"`
}

// NewArtifact stamps a fitted model with a fresh id and a version derived from now
func NewArtifact(kind Kind, featureNames []string, m *Regressor, metrics Metrics, now time.Time) *Artifact {
	now = now.UTC()
	return &Artifact{
		ID:           uuid.NewString(),
		Kind:         kind,
		Version:      now.Format(VersionLayout),
		CreatedAt:    now,
		FeatureNames: append([]string(nil), featureNames...),
		Params:       m.Params,
		Metrics:      metrics,
		Model:        m,
	}
}

// Store keeps artifacts as JSON files under one directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(kind Kind, version string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.json", kind, version))
}

// Save writes an artifact. Existing versions are never overwritten.
func (s *Store) Save(a *Artifact) (string, error) {
	if a.Model == nil {
		return "", ErrNotFitted
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model dir: %w", err)
	}

	dest := s.path(a.Kind, a.Version)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrVersionExists, filepath.Base(dest))
	}

	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}
	return dest, nil
}

// Versions lists stored versions of kind, oldest first
func (s *Store) Versions(kind Kind) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, string(kind)+"-*.json"))
	if err != nil {
		return nil, err
	}
	prefix := string(kind) + "-"
	versions := make([]string, 0, len(matches))
	for _, m := range matches {
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".json"))
	}
	sort.Strings(versions)
	return versions, nil
}

// Load reads one artifact version
func (s *Store) Load(kind Kind, version string) (*Artifact, error) {
	data, err := os.ReadFile(s.path(kind, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s %s", ErrNoArtifact, kind, version)
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s-%s: %w", kind, version, err)
	}
	if a.Kind != kind {
		return nil, fmt.Errorf("artifact %s-%s declares kind %q", kind, version, a.Kind)
	}
	if a.Model == nil || a.Model.NumFeatures == 0 {
		return nil, fmt.Errorf("artifact %s-%s: %w", kind, version, ErrNotFitted)
	}
	return &a, nil
}

// LoadLatest reads the newest version of kind
func (s *Store) LoadLatest(kind Kind) (*Artifact, error) {
	versions, err := s.Versions(kind)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoArtifact, kind, s.dir)
	}
	return s.Load(kind, versions[len(versions)-1])
}
