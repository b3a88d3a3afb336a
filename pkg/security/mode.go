package security

import "sync"

// OperationMode gates what the validator is allowed to do on the host.
type OperationMode string

const (
	// ModeRestricted permits filesystem inspection only: no external
	// process is spawned, and sandboxed nix checks are skipped.
	ModeRestricted OperationMode = "restricted"
	// ModeStandard permits full validation including nix invocations.
	ModeStandard OperationMode = "standard"
)

var (
	mu          sync.RWMutex
	currentMode = ModeStandard
)

// Initialize sets the process-wide operation mode. Unknown values
// fall back to standard.
func Initialize(mode OperationMode) {
	mu.Lock()
	defer mu.Unlock()
	switch mode {
	case ModeRestricted, ModeStandard:
		currentMode = mode
	default:
		currentMode = ModeStandard
	}
}

func CurrentMode() OperationMode {
	mu.RLock()
	defer mu.RUnlock()
	return currentMode
}

// CanInvoke reports whether external command invocation is permitted
// under the current mode.
func CanInvoke() bool {
	return CurrentMode() != ModeRestricted
}
