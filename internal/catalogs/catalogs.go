package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Catalogs struct {
	Textures TextureCatalog
}

// TextureCatalog maps chat material names to the world's texture keys. Names compare
// case-insensitively and keep file order for listing.
type TextureCatalog struct {
	Defs   []TextureDef
	byName map[string]TextureDef
	Digest string
}

type TextureDef struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

const texturesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["name", "key"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
      "key":  {"type": "string", "minLength": 1}
    }
  }
}`

var texturesValidator = jsonschema.MustCompileString("textures.schema.json", texturesSchema)

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadTextures(filepath.Join(configDir, "textures.json"), &c.Textures); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadTextures(path string, out *TextureCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseTextures(raw, out)
}

func parseTextures(raw []byte, out *TextureCatalog) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("textures.json: %w", err)
	}
	if err := texturesValidator.Validate(doc); err != nil {
		return fmt.Errorf("textures.json: %w", err)
	}
	var defs []TextureDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("textures.json: %w", err)
	}
	tc, err := NewTextureCatalog(defs)
	if err != nil {
		return err
	}
	tc.Digest = sha256Hex(raw)
	*out = tc
	return nil
}

func NewTextureCatalog(defs []TextureDef) (TextureCatalog, error) {
	tc := TextureCatalog{
		Defs:   make([]TextureDef, 0, len(defs)),
		byName: make(map[string]TextureDef, len(defs)),
	}
	for _, d := range defs {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" {
			return TextureCatalog{}, fmt.Errorf("textures.json: empty name")
		}
		if _, dup := tc.byName[name]; dup {
			return TextureCatalog{}, fmt.Errorf("textures.json: duplicate name %q", name)
		}
		d.Name = name
		tc.byName[name] = d
		tc.Defs = append(tc.Defs, d)
	}
	b, _ := json.Marshal(tc.Defs)
	tc.Digest = sha256Hex(b)
	return tc, nil
}

func (tc TextureCatalog) Lookup(name string) (TextureDef, bool) {
	d, ok := tc.byName[strings.ToLower(name)]
	return d, ok
}

func (tc TextureCatalog) Names() []string {
	out := make([]string, 0, len(tc.Defs))
	for _, d := range tc.Defs {
		out = append(out, d.Name)
	}
	return out
}
