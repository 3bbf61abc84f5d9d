// paths.go resolves the configuration root and the per-project and
// per-session directory layout underneath it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnv overrides the configuration root when set. Used by tests and by
// operators who want state outside the home directory.
const RootEnv = "AUTOM8_HOME"

// Root returns the per-user configuration root, ~/.autom8 by default.
func Root() (string, error) {
	if dir := os.Getenv(RootEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".autom8"), nil
}

// ProjectDir returns the directory for a project under the config root.
func ProjectDir(project string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, project), nil
}

// SpecDir returns the directory holding markdown specs and structured
// plans for a project.
func SpecDir(project string) (string, error) {
	dir, err := ProjectDir(project)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "spec"), nil
}

// SessionDir returns the state directory for one session of a project.
// Session "main" represents the main working directory; every other id
// represents a linked worktree.
func SessionDir(project, sessionID string) (string, error) {
	dir, err := ProjectDir(project)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionID), nil
}

// HistoryDBPath returns the path of the cross-project run-history database.
func HistoryDBPath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "history.db"), nil
}

// ListProjects returns the names of all project directories under the
// config root. A missing root yields an empty list.
func ListProjects() ([]string, error) {
	root, err := Root()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config root: %w", err)
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	return projects, nil
}
