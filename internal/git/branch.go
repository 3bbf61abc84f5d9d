// branch.go handles branch queries and switching.
package git

// CurrentBranch returns the name of the branch checked out in dir.
func CurrentBranch(dir string) (string, error) {
	return run(dir, "rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists checks whether a local branch with the given name exists.
func BranchExists(dir, name string) bool {
	_, err := run(dir, "rev-parse", "--verify", "refs/heads/"+name)
	return err == nil
}

// CreateBranch creates a new branch off HEAD and switches to it.
func CreateBranch(dir, name string) error {
	_, err := run(dir, "checkout", "-b", name)
	return err
}

// SwitchBranch switches to an existing branch.
func SwitchBranch(dir, name string) error {
	_, err := run(dir, "checkout", name)
	return err
}

// EnsureBranch switches to name, creating it off HEAD if it does not
// exist. No-op when already on it.
func EnsureBranch(dir, name string) error {
	current, err := CurrentBranch(dir)
	if err != nil {
		return err
	}
	if current == name {
		return nil
	}
	if BranchExists(dir, name) {
		return SwitchBranch(dir, name)
	}
	return CreateBranch(dir, name)
}

// DeleteBranch force-deletes a local branch.
func DeleteBranch(dir, name string) error {
	_, err := run(dir, "branch", "-D", name)
	return err
}

// HasChanges reports whether the working tree has uncommitted changes.
func HasChanges(dir string) (bool, error) {
	out, err := run(dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Push pushes the branch to origin, setting the upstream.
func Push(dir, branch string) error {
	_, err := run(dir, "push", "--set-upstream", "origin", branch)
	return err
}
