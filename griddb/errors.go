package griddb

// AbortReason is the caller-visible, structured failure of Commit or
// BranchFrom. It is distinct from a plain engine/IO error:
// the transaction it aborted rolled back cleanly, and the database is
// unchanged.
type AbortReason struct {
	reason string
}

func (a *AbortReason) Error() string { return a.reason }

var (
	// ErrNoPathExists is raised by BranchFrom when the version graph has
	// no common ancestor connecting the old parent version to the target.
	ErrNoPathExists = &AbortReason{reason: "griddb: no path exists between versions"}

	// ErrNoPathExistsToRoot is raised when walking parent pointers toward
	// the graph root encounters a version with no recorded node before
	// reaching one with no parent.
	ErrNoPathExistsToRoot = &AbortReason{reason: "griddb: no path exists to root"}

	// ErrMissingVersionChanges is raised when BranchFrom needs an archived
	// delta that is absent from the change archive.
	ErrMissingVersionChanges = &AbortReason{reason: "griddb: missing version changes in archive"}
)

// ErrBackupCacheCorrupted signals invariant I1 violated: the backup key
// cache names a key the backup tree does not have. This is a fatal,
// unrecoverable bug in the core or its storage engine, never a normal
// runtime condition, so it is raised as a panic rather than returned.
type ErrBackupCacheCorrupted struct {
	Key []byte
}

func (e *ErrBackupCacheCorrupted) Error() string {
	return "griddb: backup key cache names a key absent from the backup tree (I1 violated)"
}
