package migration

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/types"
)

// manifestEntry is one migrations.yaml entry. Transform is a name, not
// Go code — YAML can't encode a function, so a manifest names a transform
// registered in code and LoadManifest resolves it, the same split a
// config-driven pipeline elsewhere in this stack uses between declarative
// settings and the handlers they select.
type manifestEntry struct {
	ID          string `yaml:"id"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Applies     string `yaml:"applies"`
	Transform   string `yaml:"transform"`
}

type manifest struct {
	Migrations []manifestEntry `yaml:"migrations"`
}

// Registry maps a manifest's `transform` name to the function it selects.
type Registry map[string]func(types.Metadata) types.Metadata

// LoadManifest parses a migrations.yaml document and resolves each entry's
// named transform against registry, in file order.
func LoadManifest(data []byte, registry Registry) ([]Migration, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse migration manifest: %w", err)
	}

	migrations := make([]Migration, 0, len(m.Migrations))
	for _, e := range m.Migrations {
		fn, ok := registry[e.Transform]
		if !ok {
			return nil, fmt.Errorf("migration manifest: %w", brainyerr.InvalidArgument(fmt.Sprintf("migration %q: unknown transform %q", e.ID, e.Transform)))
		}
		migrations = append(migrations, Migration{
			ID:          e.ID,
			Version:     e.Version,
			Description: e.Description,
			Applies:     Applies(e.Applies),
			Transform:   fn,
		})
	}
	return migrations, nil
}
