package dzconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and decodes a manifest document from path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("dzconfig: load %s: %w", path, err)
	}
	return &m, nil
}

// Save encodes a manifest document and writes it to path, creating or
// truncating the file.
func Save(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dzconfig: create %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("dzconfig: encode %s: %w", path, err)
	}
	return nil
}
