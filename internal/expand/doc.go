// Package expand resolves user-selected files and directories into a flat
// ordered list of file paths.
//
// Directories are walked depth-first with entries in lexical order.
// Hidden entries inside directories are skipped by default, while paths
// supplied directly are always kept. Symlinked directories are followed,
// guarded by the (device, inode) identities of the directories on the
// current descent path and by a maximum depth, so a link back to an
// ancestor is reported and skipped instead of looping.
//
// Count and Stream share one walk, so the count reported up front matches
// what the stream yields for an unchanged tree:
//
//	total, _ := e.Count(ctx, inputs)
//	seq, _ := e.Stream(ctx, inputs)
//	for p, ok := seq.Next(); ok; p, ok = seq.Next() {
//		// ...
//	}
package expand
