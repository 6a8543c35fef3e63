package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfigs(t *testing.T) {
	c, err := Load("../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"brick", "stone", "wood", "dirt", "greywood"}
	got := c.Textures.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names=%v want %v", got, want)
	}
	d, ok := c.Textures.Lookup("BRICK")
	if !ok || d.Key != "sw-brick16a" {
		t.Fatalf("lookup BRICK=%+v ok=%v", d, ok)
	}
	if len(c.Textures.Digest) != 64 {
		t.Fatalf("digest=%q", c.Textures.Digest)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	tc, err := NewTextureCatalog([]TextureDef{{Name: "Brick", Key: "k1"}, {Name: "stone", Key: "k2"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, n := range []string{"brick", "BRICK", "Brick", "bRiCk"} {
		if d, ok := tc.Lookup(n); !ok || d.Key != "k1" {
			t.Fatalf("lookup %q=%+v ok=%v", n, d, ok)
		}
	}
	for _, n := range []string{"marble", " brick", "brick "} {
		if _, ok := tc.Lookup(n); ok {
			t.Fatalf("unexpected hit for %q", n)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"empty":        `[]`,
		"missing key":  `[{"name":"brick"}]`,
		"bad name":     `[{"name":"two words","key":"k"}]`,
		"extra field":  `[{"name":"brick","key":"k","color":"red"}]`,
		"duplicate ci": `[{"name":"brick","key":"a"},{"name":"BRICK","key":"b"}]`,
	}
	for name, raw := range cases {
		var tc TextureCatalog
		if err := parseTextures([]byte(raw), &tc); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil || !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "textures.json"), []byte(`[{"name":"glass","key":"sw-glass1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d, ok := c.Textures.Lookup("Glass"); !ok || d.Key != "sw-glass1" {
		t.Fatalf("lookup=%+v", d)
	}
}
