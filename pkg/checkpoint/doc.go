// Package checkpoint saves the intervals a failed collection run managed to
// complete.
//
// A run that aborts part way (an exhausted rate limit, a provider error, a
// cancelled context) still holds every interval it finished. Those intervals
// are written to a snapshot file so the operator can inspect what was
// collected before deciding how to re-run:
//
//	<data dir>/checkpoints/<series>.checkpoint.json
//
// Snapshots are written atomically (temp file, fsync, rename) and carry a
// version number. They are never used to resume a run; a later successful run
// for the same series removes the stale snapshot.
package checkpoint
