package loader

import "runtime"

// DefaultMaxModules bounds the loader table.
const DefaultMaxModules = 64

// Options configures loader behavior.
type Options struct {
	// SearchPaths are the directories probed for module containers,
	// in order. Relative paths are resolved against the working directory.
	SearchPaths []string

	// MaxModules bounds the number of concurrently loaded modules.
	// 0 means DefaultMaxModules.
	MaxModules int

	// EnableHotSwap allows HotSwap on modules whose manifest marks them
	// swappable.
	EnableHotSwap bool

	// MapExecutable maps each module's code section into executable
	// memory so function exports can be called directly. Disable for
	// inspection-only use.
	MapExecutable bool
}

// DefaultOptions returns default loader configuration: the conventional
// project directories first, then the platform system directories.
func DefaultOptions() Options {
	return Options{
		SearchPaths:   defaultSearchPaths(),
		MaxModules:    DefaultMaxModules,
		EnableHotSwap: true,
		MapExecutable: true,
	}
}

func defaultSearchPaths() []string {
	paths := []string{"./modules", "./lib"}
	switch runtime.GOOS {
	case "windows":
		paths = append(paths, `C:\Program Files\native-runtime\modules`)
	case "darwin":
		paths = append(paths, "/usr/local/lib/native-runtime", "/opt/homebrew/lib/native-runtime")
	default:
		paths = append(paths, "/usr/local/lib/native-runtime", "/usr/lib/native-runtime")
	}
	return paths
}

func (o Options) maxModules() int {
	if o.MaxModules > 0 {
		return o.MaxModules
	}
	return DefaultMaxModules
}
