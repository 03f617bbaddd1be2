package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// manifest is the subset of a model3.json file the headless engine reads.
type manifest struct {
	Version        int `json:"Version"`
	FileReferences struct {
		Moc         string   `json:"Moc"`
		Textures    []string `json:"Textures"`
		Expressions []struct {
			Name string `json:"Name"`
			File string `json:"File"`
		} `json:"Expressions"`
		Motions map[string][]struct {
			File string `json:"File"`
		} `json:"Motions"`
	} `json:"FileReferences"`
}

// readInventory parses the manifest at path and checks that every file it
// references exists.
func readInventory(path string) (Inventory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("model3 load failed: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Inventory{}, fmt.Errorf("model3 load failed: %w", err)
	}

	refs := m.FileReferences
	if refs.Moc == "" {
		return Inventory{}, fmt.Errorf("model3 load failed: %s has no Moc reference", filepath.Base(path))
	}

	baseDir := filepath.Dir(path)
	check := func(rel string) error {
		if _, err := os.Stat(filepath.Join(baseDir, rel)); err != nil {
			return fmt.Errorf("model3 load failed: %w", err)
		}
		return nil
	}

	if err := check(refs.Moc); err != nil {
		return Inventory{}, err
	}
	for _, tex := range refs.Textures {
		if err := check(tex); err != nil {
			return Inventory{}, err
		}
	}

	inv := Inventory{
		Expressions: []Expression{},
		Motions:     []Motion{},
	}
	for _, exp := range refs.Expressions {
		if err := check(exp.File); err != nil {
			return Inventory{}, err
		}
		inv.Expressions = append(inv.Expressions, Expression{
			ID:    assetID(exp.File, ".exp3.json"),
			Group: "default",
		})
	}

	groups := make([]string, 0, len(refs.Motions))
	for g := range refs.Motions {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		for _, mo := range refs.Motions[g] {
			if err := check(mo.File); err != nil {
				return Inventory{}, err
			}
			inv.Motions = append(inv.Motions, Motion{
				ID:    assetID(mo.File, ".motion3.json"),
				Group: g,
			})
		}
	}
	return inv, nil
}

// assetID strips the directory and the double extension from an asset path:
// "exp/smile.exp3.json" -> "smile".
func assetID(file, suffix string) string {
	base := filepath.Base(filepath.FromSlash(file))
	if strings.HasSuffix(strings.ToLower(base), suffix) {
		return base[:len(base)-len(suffix)]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
