// Package main hosts the nascam CLI entrypoint and command graph.
//
// The Cobra-based command tree reads imager frames and containers into a
// batch, records batch metadata in the local catalog, maintains the shared
// extraction working directory, and scaffolds configuration. It centralizes
// configuration resolution and logger setup so subcommands only deal with
// flags and presentation.
package main
