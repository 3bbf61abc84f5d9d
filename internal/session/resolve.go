// resolve.go implements the resume-target resolution policy.
package session

import (
	"errors"
	"fmt"
)

// ErrNoResumable is returned when no session has a resumable run.
var ErrNoResumable = errors.New("no resumable session found")

// AmbiguousError is returned when more than one session could be
// resumed; the caller presents Candidates for selection.
type AmbiguousError struct {
	Candidates []Info
}

// Error implements the error interface.
func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d resumable sessions; pick one with --session", len(e.Candidates))
}

// ResolveResume picks the session a bare `resume` should target: the
// current session when the CWD is inside a linked worktree, else the
// single resumable session, else an AmbiguousError carrying the list.
func ResolveResume(reg *Registry) (*Info, error) {
	infos, err := reg.List()
	if err != nil {
		return nil, err
	}

	// Inside a linked worktree: that session wins outright.
	for i := range infos {
		if infos[i].Class == ClassCurrent && !infos[i].Metadata.IsMain() {
			return &infos[i], nil
		}
	}

	var resumable []Info
	for _, info := range infos {
		if info.Class == ClassResumable ||
			(info.Class == ClassCurrent && resumableState(info.RunState)) {
			resumable = append(resumable, info)
		}
	}

	switch len(resumable) {
	case 0:
		return nil, ErrNoResumable
	case 1:
		return &resumable[0], nil
	default:
		return nil, &AmbiguousError{Candidates: resumable}
	}
}
