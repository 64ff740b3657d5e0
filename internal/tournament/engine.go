package tournament

import (
	"fmt"
	"slices"

	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/shared"
)

// ErrTooFewTracks is returned by [Engine.Load] when fewer than two tracks are given.
var ErrTooFewTracks = fmt.Errorf("%w: a bracket needs at least 2 tracks", shared.ErrInsufficientData)

// State of a bracket.
type State int

const (
	Empty State = iota
	InRound
	Champion
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case InRound:
		return "in_round"
	case Champion:
		return "champion"
	default:
		return ""
	}
}

// Bracket is the full state of a single-elimination tournament.
//
// PairIndex is even; CurrentRound[PairIndex] and CurrentRound[PairIndex+1] are the pair being decided.
// NextRound holds the winners picked so far in this round, so len(NextRound) == PairIndex/2.
// When Winner is set both rounds are empty.
type Bracket struct {
	CurrentRound []models.Track
	NextRound    []models.Track
	Winner       *models.Track
	PairIndex    int
}

// State derives the bracket state from its fields.
func (b Bracket) State() State {
	switch {
	case b.Winner != nil:
		return Champion
	case len(b.CurrentRound) == 0:
		return Empty
	default:
		return InRound
	}
}

// Pair returns the two tracks being decided, or fewer at the end of an odd-sized round.
func (b Bracket) Pair() []models.Track {
	if b.State() != InRound {
		return nil
	}
	pair := make([]models.Track, 0, 2)
	for i := b.PairIndex; i < b.PairIndex+2 && i < len(b.CurrentRound); i++ {
		pair = append(pair, b.CurrentRound[i])
	}
	return pair
}

// Next returns the bracket after pick wins the current pair. b is not modified.
//
// The winner joins the next round; once the current round is exhausted the next round starts,
// or, with a single winner left, that winner becomes champion. Next is a no-op unless b is in a round.
func Next(b Bracket, pick models.Track) Bracket {
	if b.State() != InRound {
		return b
	}

	winners := append(slices.Clone(b.NextRound), pick)
	pairIndex := b.PairIndex + 2

	if pairIndex < len(b.CurrentRound) {
		return Bracket{CurrentRound: b.CurrentRound, NextRound: winners, PairIndex: pairIndex}
	}
	if len(winners) == 1 {
		champion := winners[0]
		return Bracket{Winner: &champion}
	}
	return Bracket{CurrentRound: winners}
}

// Progress locates the current match for display, e.g. "round of 16, match 3/8".
type Progress struct {
	RoundSize    int
	Match        int
	TotalMatches int
}

// Engine drives a [Bracket] through [Next]. It is not safe for concurrent use.
type Engine struct {
	b Bracket
}

// New returns an engine in the [Empty] state.
func New() *Engine {
	return &Engine{}
}

// Load starts a bracket over tracks in the given order. Rounds are expected to have even size.
func (e *Engine) Load(tracks []models.Track) error {
	if len(tracks) < 2 {
		return ErrTooFewTracks
	}
	e.b = Bracket{CurrentRound: slices.Clone(tracks)}
	return nil
}

func (e *Engine) State() State { return e.b.State() }

// Bracket returns a snapshot of the current state.
func (e *Engine) Bracket() Bracket {
	b := e.b
	b.CurrentRound = slices.Clone(b.CurrentRound)
	b.NextRound = slices.Clone(b.NextRound)
	return b
}

// CurrentPair returns the tracks of the match being decided; nil outside a round.
func (e *Engine) CurrentPair() []models.Track {
	return e.b.Pair()
}

// Pick records track as the winner of the current match. It does nothing once a champion exists.
func (e *Engine) Pick(track models.Track) {
	e.b = Next(e.b, track)
}

// PickIndex picks CurrentPair()[i] and reports whether such a track existed.
func (e *Engine) PickIndex(i int) bool {
	pair := e.CurrentPair()
	if i < 0 || i >= len(pair) {
		return false
	}
	e.Pick(pair[i])
	return true
}

// Champion returns the winner once the bracket is decided.
func (e *Engine) Champion() (models.Track, bool) {
	if e.b.Winner == nil {
		return models.Track{}, false
	}
	return *e.b.Winner, true
}

// Round returns the tracks still competing in the current round.
func (e *Engine) Round() []models.Track {
	return slices.Clone(e.b.CurrentRound)
}

// Progress reports the current match; zero outside a round.
func (e *Engine) Progress() Progress {
	if e.b.State() != InRound {
		return Progress{}
	}
	n := len(e.b.CurrentRound)
	return Progress{RoundSize: n, Match: e.b.PairIndex/2 + 1, TotalMatches: (n + 1) / 2}
}

// Reset returns the engine to [Empty].
func (e *Engine) Reset() {
	e.b = Bracket{}
}
