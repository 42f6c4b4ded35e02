//go:build !linux && !windows

package trayapp

// newPlatformWindow reports that the current platform has no system tray
// integration.
func newPlatformWindow(cfg WindowConfig, events chan<- Event) (Window, error) {
	return nil, ErrNotImplemented
}
