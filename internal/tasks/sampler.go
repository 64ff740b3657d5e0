package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/services"
	"github.com/hanbin8269/spotify-vs/internal/shared"
)

const (
	DefaultPageSize    = 50
	DefaultMaxAttempts = 10
)

// Page is one offset/limit page of a remote track collection.
type Page struct {
	Tracks  []models.Track
	Total   int
	HasMore bool
}

// PageFetcher loads one page of the user's library.
type PageFetcher interface {
	FetchPage(ctx context.Context, limit, offset int) (Page, error)
}

// PageFetcherFunc adapts a function to [PageFetcher].
type PageFetcherFunc func(ctx context.Context, limit, offset int) (Page, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, limit, offset int) (Page, error) {
	return f(ctx, limit, offset)
}

// LikedTracks reads the saved-tracks collection through client.
func LikedTracks(client *services.UserClient) PageFetcher {
	return PageFetcherFunc(func(ctx context.Context, limit, offset int) (Page, error) {
		p, err := client.SavedTracks(ctx, limit, offset)
		if err != nil {
			return Page{}, err
		}
		return Page{Tracks: p.Tracks(), Total: p.Total, HasMore: p.HasMore()}, nil
	})
}

// TrackPool is a set of tracks keyed by id. Adding an id that is already present is a no-op.
type TrackPool struct {
	byID  map[string]models.Track
	order []string
}

func NewTrackPool() *TrackPool {
	return &TrackPool{byID: map[string]models.Track{}}
}

// Add inserts t and reports whether it was new. Tracks without an id are ignored.
func (p *TrackPool) Add(t models.Track) bool {
	if t.ID == "" {
		return false
	}
	if _, ok := p.byID[t.ID]; ok {
		return false
	}
	p.byID[t.ID] = t
	p.order = append(p.order, t.ID)
	return true
}

func (p *TrackPool) Len() int { return len(p.order) }

// Tracks returns the pooled tracks in the order they were first seen.
func (p *TrackPool) Tracks() []models.Track {
	tracks := make([]models.Track, len(p.order))
	for i, id := range p.order {
		tracks[i] = p.byID[id]
	}
	return tracks
}

// Sampler assembles a deduplicated pool of tracks from a paginated library without reading all of it.
//
// After the first page, each fetch jumps to a random offset in [0, max(0, total-pageSize)].
// This is best-effort randomization, not a uniform sample of the library.
type Sampler struct {
	fetcher     PageFetcher
	pageSize    int
	maxAttempts int
	intN        func(n int) int
	logger      *log.Logger
}

// SamplerOption configures a [Sampler].
type SamplerOption func(*Sampler)

// WithPageSize sets the page size (default 50).
func WithPageSize(n int) SamplerOption {
	return func(s *Sampler) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxAttempts bounds the number of page fetches (default 10).
func WithMaxAttempts(n int) SamplerOption {
	return func(s *Sampler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRand sets the random source for offsets and shuffling.
func WithRand(r *rand.Rand) SamplerOption {
	return func(s *Sampler) { s.intN = r.IntN }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SamplerOption {
	return func(s *Sampler) { s.logger = l }
}

func NewSampler(fetcher PageFetcher, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		fetcher:     fetcher,
		pageSize:    DefaultPageSize,
		maxAttempts: DefaultMaxAttempts,
		intN:        rand.IntN,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample fetches pages until the pool holds desired tracks, the library has no further page,
// or the attempt budget is spent. At most maxAttempts pages are requested, one at a time.
//
// Any fetch error aborts sampling and is returned as is, so [services.ErrUnauthorized] stays detectable.
func (s *Sampler) Sample(ctx context.Context, desired int, progress chan<- ProgressUpdate) ([]models.Track, error) {
	pool := NewTrackPool()
	offset, hasMore, attempts := 0, true, 0

	for pool.Len() < desired && hasMore && attempts < s.maxAttempts {
		page, err := s.fetcher.FetchPage(ctx, s.pageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, t := range page.Tracks {
			pool.Add(t)
		}
		attempts++
		hasMore = page.HasMore
		s.logger.Debug("sampled page", "offset", offset, "total", page.Total, "pooled", pool.Len(), "attempt", attempts)
		sendProgress(progress, fetchPageUpdate(attempts, s.maxAttempts, pool.Len()))

		if !hasMore {
			break
		}
		offset = s.intN(max(0, page.Total-s.pageSize) + 1)
	}

	return pool.Tracks(), nil
}

// Draw samples twice count tracks, shuffles them and returns at most count.
//
// An empty library yields [shared.ErrEmptyLibrary]; a single track yields [shared.ErrInsufficientData].
// Both match [shared.ErrInsufficientData]. A pool smaller than count but with at least 2 tracks is returned whole.
func (s *Sampler) Draw(ctx context.Context, count int, progress chan<- ProgressUpdate) ([]models.Track, error) {
	if count < 2 {
		return nil, fmt.Errorf("%w: count must be at least 2, got %d", shared.ErrInvalidArgument, count)
	}

	pool, err := s.Sample(ctx, count*2, progress)
	if err != nil {
		return nil, err
	}

	switch len(pool) {
	case 0:
		return nil, fmt.Errorf("%w: %w", shared.ErrInsufficientData, shared.ErrEmptyLibrary)
	case 1:
		return nil, shared.ErrInsufficientData
	}

	sendProgress(progress, shuffleUpdate(len(pool), count))
	ShuffleTracks(pool, s.intN)
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

// ShuffleTracks shuffles tracks in place (Fisher-Yates). intN returns a value in [0, n); nil uses [rand.IntN].
func ShuffleTracks(tracks []models.Track, intN func(n int) int) {
	if intN == nil {
		intN = rand.IntN
	}
	for i := len(tracks) - 1; i > 0; i-- {
		j := intN(i + 1)
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
}
