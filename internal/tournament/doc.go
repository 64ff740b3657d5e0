// Package tournament is the single-elimination bracket played over sampled tracks.
//
// The bracket is a finite-state machine: [Empty] → [InRound] → [Champion], with [Engine.Reset]
// returning to [Empty]. All transitions go through the pure function [Next], so the rules can be
// tested without an [Engine] or any rendering surface.
package tournament
