// Package httpapi exposes the stores over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/imageopt"
	"github.com/fjod/artisan_market/internal/observable"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type CartStore interface {
	Add(ctx context.Context, p domain.Product) error
	Remove(ctx context.Context, id int64) error
	SetQuantity(ctx context.Context, id int64, qty int) error
	Clear(ctx context.Context) error
	Items() []domain.CartItem
	Subscribe(fn observable.Observer[[]domain.CartItem]) func()
}

type FavoritesStore interface {
	IsFavorite(id int64) bool
	Toggle(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	IDs() []int64
}

type MessagingStore interface {
	CreateConversation(p domain.Participant) int64
	SendMessage(conversationID, receiverID int64, text string) bool
	MarkConversationAsRead(conversationID int64)
	Conversation(id int64) (domain.Conversation, bool)
	ConversationMessages(conversationID int64) []domain.Message
	SearchConversations(term string) []domain.Conversation
	UnreadCount(conversationID int64) int
	TotalUnread() int
}

type ReviewsStore interface {
	RatingOf(artisanID int64) float64
	RatingDistribution(artisanID int64) []domain.RatingBucket
	AttachResponse(reviewID int64, text string) bool
	AddReview(r domain.Review) (domain.Review, error)
	ForArtisan(artisanID int64) []domain.Review
	Review(id int64) (domain.Review, bool)
}

type Deps struct {
	Cart      CartStore
	Favorites FavoritesStore
	Messaging MessagingStore
	Reviews   ReviewsStore
	Images    *imageopt.Optimizer
	Logger    *zap.Logger

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.MaxRequestBodySize <= 0 {
		d.MaxRequestBodySize = 1 << 20
	}
	if d.Images == nil {
		d.Images = imageopt.New()
	}

	cartHandler := NewCartHandler(d.Cart, d.Logger)
	favoritesHandler := NewFavoritesHandler(d.Favorites, d.Logger)
	messagingHandler := NewMessagingHandler(d.Messaging)
	reviewsHandler := NewReviewsHandler(d.Reviews)
	imagesHandler := NewImagesHandler(d.Images)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.RequestSize(d.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	withDeadline := func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))
		r.Use(middleware.Compress(5))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			// the stream outlives the request timeout
			r.Get("/stream", cartHandler.Stream)

			r.Group(func(r chi.Router) {
				withDeadline(r)
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})
		})

		r.Group(func(r chi.Router) {
			withDeadline(r)

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", favoritesHandler.List)
				r.Delete("/", favoritesHandler.Clear)
				r.Get("/{product_id}", favoritesHandler.Get)
				r.Post("/{product_id}/toggle", favoritesHandler.Toggle)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", messagingHandler.List)
				r.Post("/", messagingHandler.Create)
				r.Get("/{conversation_id}", messagingHandler.Get)
				r.Get("/{conversation_id}/messages", messagingHandler.Messages)
				r.Post("/{conversation_id}/messages", messagingHandler.Send)
				r.Post("/{conversation_id}/read", messagingHandler.MarkRead)
			})

			r.Get("/artisans/{artisan_id}/reviews", reviewsHandler.ForArtisan)
			r.Get("/artisans/{artisan_id}/rating", reviewsHandler.Rating)
			r.Post("/reviews", reviewsHandler.Add)
			r.Post("/reviews/{review_id}/response", reviewsHandler.Respond)

			r.Get("/badges", BadgeCatalog)
			r.Post("/badges/assign", AssignBadges)

			r.Get("/images/optimize", imagesHandler.Optimize)
			r.Get("/images/sources", imagesHandler.Sources)
		})
	})

	return otelhttp.NewHandler(r, "artisan-http")
}
