package platform

// OS is the operating system specific part of the application lifecycle
type OS interface {
	// KeepsRunningWithoutWindows reports whether closing the last window
	// leaves the process alive, as macOS applications do.
	KeepsRunningWithoutWindows() bool
	// PrepareProcess gives the process its identity before any window exists
	PrepareProcess(appID string) error
	// Name identifies the platform in logs
	Name() string
}
