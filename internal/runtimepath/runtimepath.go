// Package runtimepath resolves per-user runtime locations for the daemon.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName    = "webviewd"
	socketName = appName + ".sock"
)

// Dir returns the per-user runtime directory, in order of preference:
// $XDG_RUNTIME_DIR, /run/user/<uid>, or /tmp/webviewd-runtime-<uid> which is
// created with mode 0700.
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); isDir(dir) {
		return dir, nil
	}

	tmpDir := filepath.Join(os.TempDir(), fmt.Sprintf("%s-runtime-%d", appName, uid))
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the default IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// ResolveSocket returns configured when set, otherwise SocketPath.
func ResolveSocket(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return SocketPath()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
