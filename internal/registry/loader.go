package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"swarmd/internal/common/fsutil"
	"swarmd/pkg/types"
)

// roster is the on-disk shape of the profile file.
type roster struct {
	Profiles []types.Profile `json:"profiles" yaml:"profiles" toml:"profiles"`
}

// LoadFile reads the profile roster from a yaml/json/toml file and validates
// it. Profiles are returned as pointers because the scheduler and the slot
// manager share them by reference.
func LoadFile(path string) ([]*types.Profile, error) {
	base, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if !fsutil.PathExists(base) {
		return nil, fmt.Errorf("roster file not found: %s", base)
	}
	b, err := os.ReadFile(base)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var r roster
	switch ext := strings.ToLower(filepath.Ext(base)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster extension: %s", ext)
	}

	seen := make(map[string]struct{}, len(r.Profiles))
	out := make([]*types.Profile, 0, len(r.Profiles))
	for i := range r.Profiles {
		p := &r.Profiles[i]
		if p.ID == "" {
			return nil, fmt.Errorf("profile %d: empty id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile id: %s", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Emulator == "" {
			return nil, fmt.Errorf("profile %s: empty emulator id", p.ID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		out = append(out, p)
	}
	return out, nil
}
