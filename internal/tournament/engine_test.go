package tournament

import (
	"errors"
	"testing"

	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	tu "github.com/hanbin8269/spotify-vs/internal/testing"
)

// reduce is the reference single-elimination reduction where the first of each pair always wins.
func reduce(tracks []models.Track) models.Track {
	for len(tracks) > 1 {
		next := make([]models.Track, 0, len(tracks)/2)
		for i := 0; i < len(tracks); i += 2 {
			next = append(next, tracks[i])
		}
		tracks = next
	}
	return tracks[0]
}

func assertInvariants(t *testing.T, b Bracket) {
	t.Helper()
	if b.PairIndex%2 != 0 {
		t.Errorf("pair index %d is odd", b.PairIndex)
	}
	if b.State() == InRound {
		if b.PairIndex < 0 || b.PairIndex > len(b.CurrentRound) {
			t.Errorf("pair index %d outside [0, %d]", b.PairIndex, len(b.CurrentRound))
		}
		if len(b.NextRound) != b.PairIndex/2 {
			t.Errorf("next round has %d tracks at pair index %d", len(b.NextRound), b.PairIndex)
		}
	}
	if b.Winner != nil && (len(b.CurrentRound) != 0 || len(b.NextRound) != 0) {
		t.Error("champion set with non-empty rounds")
	}
}

func TestEngine(t *testing.T) {
	t.Run("Load", func(t *testing.T) {
		e := New()
		if e.State() != Empty {
			t.Fatalf("expected empty, got %s", e.State())
		}
		for _, n := range []int{0, 1} {
			err := e.Load(tu.MustTracks(n))
			if !errors.Is(err, ErrTooFewTracks) || !errors.Is(err, shared.ErrInsufficientData) {
				t.Errorf("Load(%d): expected ErrTooFewTracks, got %v", n, err)
			}
		}
		if err := e.Load(tu.MustTracks(2)); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if e.State() != InRound {
			t.Errorf("expected in_round, got %s", e.State())
		}
	})

	t.Run("Load copies input", func(t *testing.T) {
		tracks := tu.MustTracks(4)
		e := New()
		_ = e.Load(tracks)
		tracks[0] = tu.MustTrack("changed")
		if e.CurrentPair()[0].ID != "t0" {
			t.Error("expected engine to own its round")
		}
	})

	t.Run("eight tracks", func(t *testing.T) {
		e := New()
		_ = e.Load(tu.MustTracks(8))

		wantSizes := []int{8, 8, 8, 8, 4, 4, 2}
		for i, size := range wantSizes {
			if e.State() != InRound {
				t.Fatalf("pick %d: expected in_round, got %s", i, e.State())
			}
			if got := len(e.Round()); got != size {
				t.Errorf("pick %d: expected round of %d, got %d", i, size, got)
			}
			pair := e.CurrentPair()
			if len(pair) != 2 {
				t.Fatalf("pick %d: expected a pair, got %d tracks", i, len(pair))
			}
			e.Pick(pair[0])
			assertInvariants(t, e.Bracket())
		}

		champ, ok := e.Champion()
		if !ok || e.State() != Champion {
			t.Fatalf("expected champion, got %s", e.State())
		}
		if champ.ID != "t0" {
			t.Errorf("expected t0, got %s", champ.ID)
		}
		if e.CurrentPair() != nil {
			t.Error("expected no pair after champion")
		}

		e.Pick(tu.MustTrack("t5"))
		if again, _ := e.Champion(); again.ID != champ.ID {
			t.Error("expected pick after champion to be a no-op")
		}
	})

	t.Run("round transitions", func(t *testing.T) {
		e := New()
		_ = e.Load(tu.MustTracks(8))
		for range 4 {
			e.PickIndex(1)
		}
		round := e.Round()
		want := []string{"t1", "t3", "t5", "t7"}
		for i, id := range want {
			if round[i].ID != id {
				t.Errorf("round[%d]: expected %s, got %s", i, id, round[i].ID)
			}
		}
		for range 2 {
			e.PickIndex(0)
		}
		if got := len(e.Round()); got != 2 {
			t.Errorf("expected final of 2, got %d", got)
		}
		e.PickIndex(1)
		if champ, _ := e.Champion(); champ.ID != "t5" {
			t.Errorf("expected t5, got %s", champ.ID)
		}
	})

	t.Run("first pick round trip", func(t *testing.T) {
		for _, n := range []int{8, 16, 32} {
			tracks := tu.MustTracks(n)
			e := New()
			_ = e.Load(tracks)

			picks := 0
			for e.State() == InRound {
				e.Pick(e.CurrentPair()[0])
				picks++
			}
			if picks != n-1 {
				t.Errorf("size %d: expected %d picks, got %d", n, n-1, picks)
			}
			champ, _ := e.Champion()
			if want := reduce(tracks); champ.ID != want.ID {
				t.Errorf("size %d: expected %s, got %s", n, want.ID, champ.ID)
			}
		}
	})

	t.Run("Progress", func(t *testing.T) {
		e := New()
		if e.Progress() != (Progress{}) {
			t.Error("expected zero progress when empty")
		}
		_ = e.Load(tu.MustTracks(16))
		e.PickIndex(0)
		e.PickIndex(0)
		if got := e.Progress(); got != (Progress{RoundSize: 16, Match: 3, TotalMatches: 8}) {
			t.Errorf("unexpected progress %+v", got)
		}
	})

	t.Run("PickIndex out of range", func(t *testing.T) {
		e := New()
		if e.PickIndex(0) {
			t.Error("expected no pick when empty")
		}
		_ = e.Load(tu.MustTracks(2))
		if e.PickIndex(2) || e.PickIndex(-1) {
			t.Error("expected out-of-range index to be rejected")
		}
	})

	t.Run("odd round", func(t *testing.T) {
		e := New()
		_ = e.Load(tu.MustTracks(10))
		for e.State() == InRound {
			e.PickIndex(0)
		}
		if champ, ok := e.Champion(); !ok || champ.ID != "t0" {
			t.Errorf("expected t0 to win, got %v", champ)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		e := New()
		_ = e.Load(tu.MustTracks(2))
		e.PickIndex(0)
		e.Reset()
		if e.State() != Empty {
			t.Errorf("expected empty, got %s", e.State())
		}
		if _, ok := e.Champion(); ok {
			t.Error("expected no champion after reset")
		}
	})
}

func TestNext(t *testing.T) {
	t.Run("pure", func(t *testing.T) {
		tracks := tu.MustTracks(4)
		b := Bracket{CurrentRound: tracks, NextRound: []models.Track{}}
		after := Next(b, tracks[1])

		if len(b.NextRound) != 0 || b.PairIndex != 0 {
			t.Error("expected input bracket to be unchanged")
		}
		if after.PairIndex != 2 || len(after.NextRound) != 1 || after.NextRound[0].ID != "t1" {
			t.Errorf("unexpected bracket %+v", after)
		}
	})

	t.Run("no-op when empty", func(t *testing.T) {
		if got := Next(Bracket{}, tu.MustTrack("x")); got.State() != Empty {
			t.Errorf("expected empty, got %s", got.State())
		}
	})

	t.Run("no-op after champion", func(t *testing.T) {
		champ := tu.MustTrack("c")
		b := Bracket{Winner: &champ}
		if got := Next(b, tu.MustTrack("x")); got.Winner.ID != "c" {
			t.Errorf("expected c, got %s", got.Winner.ID)
		}
	})

	t.Run("final produces champion", func(t *testing.T) {
		tracks := tu.MustTracks(2)
		got := Next(Bracket{CurrentRound: tracks}, tracks[1])
		if got.State() != Champion || got.Winner.ID != "t1" {
			t.Errorf("expected t1 champion, got %+v", got)
		}
		assertInvariants(t, got)
	})
}
