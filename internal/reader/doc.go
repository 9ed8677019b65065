// Package reader turns a list of imager files into one owned frame stack with
// matching per-frame metadata.
//
// Inputs are bare PNG frames or tar containers of frames. Each input is
// resolved (containers are extracted into a unique directory beneath the
// working directory), its members are parsed and decoded in name order, and
// the per-file stacks are assembled into a single batch stack whose frame
// signature is fixed by the first file that decodes. Files that fail, or that
// disagree with the batch signature, are reported as problems rather than
// aborting the batch.
//
// With more than one worker the input list is split into contiguous shards
// processed concurrently; shard outputs are merged in input order so the
// result is identical to a single-worker read.
package reader
