package media

import "os"

// Workspace is the temporary directory holding one ingestion run's extracted
// artifacts (per-segment audio files and intermediate keyframe stills). It is
// exclusive to its run and never shared.
type Workspace struct {
	root string
}

func newWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "videorag-segments-")
	if err != nil {
		return nil, err
	}
	return &Workspace{root: dir}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// Release removes the workspace and everything in it. Safe to call more than
// once.
func (w *Workspace) Release() error {
	if w.root == "" {
		return nil
	}
	err := os.RemoveAll(w.root)
	w.root = ""
	return err
}
