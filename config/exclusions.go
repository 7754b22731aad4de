package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Exclusions is the token vocabulary used to reject candidate variants.
// A nil slice means "use the built-in list".
type Exclusions struct {
	Track []string `toml:"track"`
	Album []string `toml:"album"`
}

// LoadExclusions reads an exclusion vocabulary file such as:
//
//	track = ["live", "remix", "en directo"]
//	album = ["karaoke"]
//
// An empty path returns an empty Exclusions so the defaults apply.
func LoadExclusions(path string) (Exclusions, error) {
	var exclusions Exclusions
	if path == "" {
		return exclusions, nil
	}

	meta, err := toml.DecodeFile(path, &exclusions)
	if err != nil {
		return Exclusions{}, fmt.Errorf("failed to read exclusions file %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Exclusions{}, fmt.Errorf("unknown keys in exclusions file %s: %v", path, undecoded)
	}

	return exclusions, nil
}
