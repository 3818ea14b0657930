// Package reviews keeps customer reviews of artisans and derives ratings from
// them.
package reviews

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/observable"
	"go.uber.org/zap"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyText     = errors.New("review text is empty")
)

type Aggregator struct {
	mu      sync.Mutex
	reviews *observable.Subject[[]domain.Review]
	now     func() time.Time
	logger  *zap.Logger

	seed []domain.Review
}

type Option func(*Aggregator)

func WithSeed(reviews []domain.Review) Option {
	return func(a *Aggregator) { a.seed = reviews }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.reviews = observable.NewSubject(cloneReviews(a.seed),
		observable.WithName("reviews"), observable.WithLogger(a.logger))
	a.seed = nil
	return a
}

// RatingOf is the mean rating of the artisan rounded to one decimal, or 0
// when the artisan has no reviews.
func (a *Aggregator) RatingOf(artisanID int64) float64 {
	sum, n := 0, 0
	for _, r := range a.reviews.Value() {
		if r.ArtisanID == artisanID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}

// RatingDistribution returns one bucket per rating from 5 down to 1.
func (a *Aggregator) RatingDistribution(artisanID int64) []domain.RatingBucket {
	counts := make(map[int]int, 5)
	total := 0
	for _, r := range a.reviews.Value() {
		if r.ArtisanID == artisanID {
			counts[r.Rating]++
			total++
		}
	}

	buckets := make([]domain.RatingBucket, 0, 5)
	for rating := 5; rating >= 1; rating-- {
		b := domain.RatingBucket{Rating: rating, Count: counts[rating]}
		if total > 0 {
			b.Percentage = int(math.Round(float64(b.Count) / float64(total) * 100))
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// AttachResponse sets the artisan's response on a review, replacing any
// earlier one. It reports false when the review does not exist.
func (a *Aggregator) AttachResponse(reviewID int64, text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	reviews := a.reviews.Value()
	i := slices.IndexFunc(reviews, func(r domain.Review) bool { return r.ID == reviewID })
	if i < 0 {
		return false
	}

	updated := cloneReviews(reviews)
	now := a.now()
	updated[i].Response = text
	updated[i].ResponseDate = &now
	a.reviews.Publish(updated)
	return true
}

// AddReview stores r with the next free id and the current date.
func (a *Aggregator) AddReview(r domain.Review) (domain.Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return domain.Review{}, fmt.Errorf("%w: got %d", ErrInvalidRating, r.Rating)
	}
	if strings.TrimSpace(r.Text) == "" {
		return domain.Review{}, ErrEmptyText
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	reviews := a.reviews.Value()
	r = r.Clone()
	r.ID = nextID(reviews)
	r.Date = a.now()
	a.reviews.Publish(append(cloneReviews(reviews), r))
	a.logger.Debug("review added", zap.Int64("review_id", r.ID), zap.Int64("artisan_id", r.ArtisanID))
	return r.Clone(), nil
}

func (a *Aggregator) Reviews() []domain.Review {
	return cloneReviews(a.reviews.Value())
}

func (a *Aggregator) ForArtisan(artisanID int64) []domain.Review {
	out := make([]domain.Review, 0)
	for _, r := range a.reviews.Value() {
		if r.ArtisanID == artisanID {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (a *Aggregator) Review(id int64) (domain.Review, bool) {
	for _, r := range a.reviews.Value() {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.Review{}, false
}

func (a *Aggregator) Subscribe(fn observable.Observer[[]domain.Review]) func() {
	return a.reviews.Subscribe(fn)
}

func cloneReviews(in []domain.Review) []domain.Review {
	out := make([]domain.Review, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func nextID(reviews []domain.Review) int64 {
	var highest int64
	for _, r := range reviews {
		highest = max(highest, r.ID)
	}
	return highest + 1
}
