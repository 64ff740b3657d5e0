// Package tasks draws the candidate tracks for a tournament from the user's Spotify library.
//
// # Sampling
//
// [Sampler.Sample] builds a [TrackPool] from at most [DefaultMaxAttempts] pages of [DefaultPageSize]
// tracks. The first page is read at offset 0; every later page starts at a random offset, so
// repeated draws see different parts of a large library without scanning it. Pages are fetched
// strictly one after another.
//
// The pool is deduplicated by track id, so a page fetched twice adds nothing. Items without a
// track (removed songs) are dropped before they reach the pool.
//
// # Drawing
//
// [Sampler.Draw] is what callers use: it asks for twice the round size, shuffles the pool with
// [ShuffleTracks] and truncates it to the round size.
//
// # Progress Reporting
//
// Both operations accept an optional channel of [ProgressUpdate]. Updates use select with
// default so a slow reader never blocks sampling.
package tasks
