// Package preflight provides readiness checks for the filesystem paths that
// nascam reads from and writes to.
//
// The CLI "nascam preflight" command runs RunAll and prints one line per
// check. The read command calls CheckReadable on its inputs before starting
// so that typos fail fast instead of showing up as per-file problems.
package preflight
