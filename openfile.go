package tinyfs

// openFileEntry is one slot of the fixed-capacity open file table. inUse is
// authoritative: a stale or reused fd whose slot isn't in use must be
// rejected by every operation, closing the gap the legacy tfs_deleteFile
// left open (spec.md §9 open question 1).
type openFileEntry struct {
	inUse      bool
	inodeBlock int32
	fp         int32
}
