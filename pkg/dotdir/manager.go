// Package dotdir manages the .aikefu/ and ~/.aikefu directories.
//
// The directory holds config.toml, credentials.toml and the CLI session file
// that remembers which conversation "aikefu ask" continues.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the aikefu directory.
	DirName = ".aikefu"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .aikefu/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.aikefu/ dir
//  3. Home ~/.aikefu/ dir
//
// An empty string is returned when none of them exist.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating aikefu directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, DirName)
		if isDir(local) {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, DirName)
	if isDir(dir) {
		return dir, nil
	}

	return "", nil
}

// HomeDir returns ~/.aikefu, creating it when needed.
func (m *Manager) HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}

	dir := filepath.Join(home, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating aikefu dir: %w", err)
	}

	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
