// Package enginetest writes model bundles on disk for tests.
package enginetest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Bundle describes a model bundle to write.
type Bundle struct {
	ID          string
	Expressions []string
	// Motions maps a motion group to motion ids.
	Motions map[string][]string
}

// WriteBundle writes root/<ID>/<ID>.model3.json plus every referenced asset
// and returns the manifest path.
func WriteBundle(t testing.TB, root string, b Bundle) string {
	t.Helper()

	dir := filepath.Join(root, b.ID)
	write := func(rel string, data []byte) {
		t.Helper()
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	type fileRef struct {
		Name string `json:"Name,omitempty"`
		File string `json:"File"`
	}
	refs := map[string]any{
		"Moc":      b.ID + ".moc3",
		"Textures": []string{"textures/texture_00.png"},
	}
	write(b.ID+".moc3", []byte("MOC3"))
	write("textures/texture_00.png", []byte("png"))

	var exps []fileRef
	for _, id := range b.Expressions {
		rel := "expressions/" + id + ".exp3.json"
		write(rel, []byte(`{"Type":"Live2D Expression"}`))
		exps = append(exps, fileRef{Name: id, File: rel})
	}
	if len(exps) > 0 {
		refs["Expressions"] = exps
	}

	motions := map[string][]fileRef{}
	for group, ids := range b.Motions {
		for _, id := range ids {
			rel := "motions/" + id + ".motion3.json"
			write(rel, []byte(`{"Version":3}`))
			motions[group] = append(motions[group], fileRef{File: rel})
		}
	}
	if len(motions) > 0 {
		refs["Motions"] = motions
	}

	raw, err := json.MarshalIndent(map[string]any{
		"Version":        3,
		"FileReferences": refs,
	}, "", "  ")
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	manifest := b.ID + ".model3.json"
	write(manifest, raw)
	return filepath.Join(dir, manifest)
}

// WriteBrokenBundle writes a bundle whose manifest cannot be parsed. It is
// still listed by the catalog.
func WriteBrokenBundle(t testing.TB, root, id string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, id+".model3.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}
