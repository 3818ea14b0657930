package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/reviews"
)

type ReviewsHandler struct {
	reviews ReviewsStore
}

func NewReviewsHandler(r ReviewsStore) *ReviewsHandler {
	return &ReviewsHandler{reviews: r}
}

type RatingResponse struct {
	ArtisanID    int64                 `json:"artisan_id"`
	Rating       float64               `json:"rating"`
	Distribution []domain.RatingBucket `json:"distribution"`
}

type AddReviewRequestDTO struct {
	ArtisanID int64  `json:"artisanId"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
}

type RespondRequestDTO struct {
	Text string `json:"text"`
}

type RespondResponse struct {
	Attached bool           `json:"attached"`
	Review   *domain.Review `json:"review,omitempty"`
}

func (h *ReviewsHandler) ForArtisan(w http.ResponseWriter, r *http.Request) {
	artisanID, ok := idParam(w, r, "artisan_id")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.reviews.ForArtisan(artisanID))
}

func (h *ReviewsHandler) Rating(w http.ResponseWriter, r *http.Request) {
	artisanID, ok := idParam(w, r, "artisan_id")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, RatingResponse{
		ArtisanID:    artisanID,
		Rating:       h.reviews.RatingOf(artisanID),
		Distribution: h.reviews.RatingDistribution(artisanID),
	})
}

func (h *ReviewsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddReviewRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ArtisanID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_artisan_id", "artisanId must be positive")
		return
	}

	review, err := h.reviews.AddReview(domain.Review{
		ArtisanID: req.ArtisanID,
		Name:      req.Name,
		Avatar:    req.Avatar,
		Rating:    req.Rating,
		Text:      req.Text,
	})
	switch {
	case errors.Is(err, reviews.ErrInvalidRating):
		respondError(w, http.StatusBadRequest, "invalid_rating", err.Error())
		return
	case errors.Is(err, reviews.ErrEmptyText):
		respondError(w, http.StatusBadRequest, "invalid_text", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

// Respond attaches the artisan's answer to a review. An unknown review is a
// no-op reported as attached=false.
func (h *ReviewsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := idParam(w, r, "review_id")
	if !ok {
		return
	}
	var req RespondRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_text", "text must not be empty")
		return
	}

	resp := RespondResponse{Attached: h.reviews.AttachResponse(reviewID, req.Text)}
	if review, found := h.reviews.Review(reviewID); found {
		resp.Review = &review
	}
	respondJSON(w, http.StatusOK, resp)
}
