// Package container decides whether an input path is a bare frame or a tar
// container of frames and, for containers, extracts members into a private
// directory beneath the shared working directory.
//
// Member order is lexicographic by name: the instrument's naming scheme
// encodes capture time, so name order is chronological order. Each resolved
// container gets its own uuid-named extraction directory, which keeps
// concurrent readers from colliding without any locking. Cleanup is
// idempotent.
package container
