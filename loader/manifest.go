package loader

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/evolvkit/native-runtime/errors"
)

// Manifest is the optional TOML sidecar that rides next to a module
// container (<name>.toml beside <name>.native). It carries metadata the
// fixed binary format has no room for: the dependency list consumed at
// load time and the hot-swap opt-in.
type Manifest struct {
	Version      string   `toml:"version"`
	Dependencies []string `toml:"dependencies"`
	HotSwappable bool     `toml:"hot_swappable"`
}

// manifestPath derives the sidecar path from a container path.
func manifestPath(containerPath string) string {
	if i := strings.LastIndex(containerPath, ".native"); i >= 0 {
		return containerPath[:i] + ".toml"
	}
	return containerPath + ".toml"
}

// readManifest loads the sidecar for a container. A missing sidecar is
// not an error; it yields the zero manifest (no dependencies, not
// swappable).
func readManifest(containerPath string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(manifestPath(containerPath))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, errors.New(errors.PhaseLoad, errors.KindIO).
			Detail("read manifest for %s", containerPath).
			Cause(err).
			Build()
	}

	if err := toml.Unmarshal(data, &m); err != nil {
		return m, errors.New(errors.PhaseLoad, errors.KindInvalidArgument).
			Detail("parse manifest for %s", containerPath).
			Cause(err).
			Build()
	}
	return m, nil
}

// WriteManifest writes a sidecar next to the given container path.
func WriteManifest(containerPath string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return errors.New(errors.PhaseLoad, errors.KindInvalidArgument).
			Detail("encode manifest").
			Cause(err).
			Build()
	}
	if err := os.WriteFile(manifestPath(containerPath), data, 0o644); err != nil {
		return errors.New(errors.PhaseLoad, errors.KindIO).
			Detail("write manifest for %s", containerPath).
			Cause(err).
			Build()
	}
	return nil
}
