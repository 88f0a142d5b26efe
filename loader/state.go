package loader

// State tracks where a module is in its lifecycle. Transitions move
// forward through the loading states into Ready; Error and Unloading
// are terminal for the current record.
type State int

const (
	// StateUnloaded means no record exists or loading has not begun.
	StateUnloaded State = iota
	// StateLoading means the container is being read and mapped.
	StateLoading
	// StateLoaded means sections are mapped but initialization has not run.
	StateLoaded
	// StateInitializing means the module's init entry point is running.
	StateInitializing
	// StateReady means the module is fully loaded and callable.
	StateReady
	// StateError means a dependency or initialization failure was recorded.
	StateError
	// StateUnloading means cleanup is running and resources are being released.
	StateUnloading
)

var stateNames = map[State]string{
	StateUnloaded:     "unloaded",
	StateLoading:      "loading",
	StateLoaded:       "loaded",
	StateInitializing: "initializing",
	StateReady:        "ready",
	StateError:        "error",
	StateUnloading:    "unloading",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
