// Package workdir manages the shared extraction working directory.
//
// Reads hold a shared flock on the directory while they extract containers;
// maintenance commands take the exclusive lock before listing or removing
// leftover extraction directories so that they never race an active read.
package workdir
