// Package catalog scans the model directory for switchable model bundles.
package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bhandras/avatarctl/internal/logger"
)

const (
	manifestSuffix   = ".model3.json"
	expressionSuffix = ".exp3.json"
	motionSuffix     = ".motion3.json"
)

// Descriptor describes one switchable model bundle. Descriptors are rebuilt
// on every scan; only ID is stable across scans.
type Descriptor struct {
	ID             string `json:"model_id"`
	DisplayName    string `json:"display_name"`
	ManifestPath   string `json:"model3_path"`
	HasExpressions bool   `json:"has_expressions"`
	HasMotions     bool   `json:"has_motions"`
}

// Scanner produces the current list of model bundles.
type Scanner interface {
	Scan() []Descriptor
}

// Find returns the descriptor with the given id from a fresh scan.
func Find(s Scanner, id string) (Descriptor, bool) {
	for _, d := range s.Scan() {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DirScanner scans Root/<model>/ directories. A directory is a model bundle
// when it directly contains a *.model3.json manifest.
type DirScanner struct {
	Root string
}

// NewDirScanner creates a scanner rooted at root.
func NewDirScanner(root string) *DirScanner {
	return &DirScanner{Root: root}
}

// Scan implements Scanner. A missing root yields an empty list.
func (s *DirScanner) Scan() []Descriptor {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("[catalog] read %s: %v", s.Root, err)
		}
		return []Descriptor{}
	}

	result := []Descriptor{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.Root, entry.Name())
		manifest := firstManifest(dir)
		if manifest == "" {
			continue
		}
		hasExp, hasMotion := scanCapabilities(dir)
		result = append(result, Descriptor{
			ID:             entry.Name(),
			DisplayName:    entry.Name(),
			ManifestPath:   manifest,
			HasExpressions: hasExp,
			HasMotions:     hasMotion,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func firstManifest(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+manifestSuffix))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

func scanCapabilities(dir string) (hasExp, hasMotion bool) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		switch {
		case strings.HasSuffix(name, expressionSuffix):
			hasExp = true
		case strings.HasSuffix(name, motionSuffix):
			hasMotion = true
		}
		if hasExp && hasMotion {
			return fs.SkipAll
		}
		return nil
	})
	return hasExp, hasMotion
}
