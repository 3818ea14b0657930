package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/artisan_market/internal/badges"
	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/imageopt"
)

type AssignBadgesResponse struct {
	Automatic []domain.BadgeID `json:"automatic"`
	Badges    []domain.Badge   `json:"badges"`
}

func BadgeCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, badges.Catalog())
}

// AssignBadges evaluates the badge rules for the posted artisan.
func AssignBadges(w http.ResponseWriter, r *http.Request) {
	var a domain.Artisan
	if !decodeJSON(w, r, &a) {
		return
	}
	automatic := badges.AutomaticBadges(a)
	if automatic == nil {
		automatic = []domain.BadgeID{}
	}
	respondJSON(w, http.StatusOK, AssignBadgesResponse{
		Automatic: automatic,
		Badges:    badges.BadgesFor(a),
	})
}

type ImagesHandler struct {
	optimizer *imageopt.Optimizer
}

func NewImagesHandler(o *imageopt.Optimizer) *ImagesHandler {
	return &ImagesHandler{optimizer: o}
}

type OptimizeResponse struct {
	URL      string `json:"url"`
	Priority bool   `json:"priority"`
}

type SourcesResponse struct {
	Sources  []imageopt.Source `json:"sources"`
	Priority bool              `json:"priority"`
}

var errBadNumber = errors.New("must be a positive integer")

// Optimize takes url, w, q, fmt and position query parameters.
func (h *ImagesHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	width, err := optionalInt(q.Get("w"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_width", "w "+err.Error())
		return
	}
	quality, err := optionalInt(q.Get("q"))
	if err != nil || quality > 100 {
		respondError(w, http.StatusBadRequest, "invalid_quality", "q must be between 1 and 100")
		return
	}
	var format imageopt.Format
	if f := q.Get("fmt"); f != "" {
		if format, err = imageopt.ParseFormat(f); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_format", err.Error())
			return
		}
	}

	respondJSON(w, http.StatusOK, OptimizeResponse{
		URL:      h.optimizer.OptimizeURL(q.Get("url"), imageopt.Options{Width: width, Quality: quality, Format: format}),
		Priority: imageopt.ShouldLoadWithPriority(q.Get("position")),
	})
}

// Sources takes url, sizes (comma separated widths) and position query
// parameters.
func (h *ImagesHandler) Sources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var sizes []int
	if raw := q.Get("sizes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := optionalInt(strings.TrimSpace(part))
			if err != nil || n == 0 {
				respondError(w, http.StatusBadRequest, "invalid_sizes", "sizes must be positive integers")
				return
			}
			sizes = append(sizes, n)
		}
	}

	sources := h.optimizer.ResponsiveSources(q.Get("url"), sizes)
	if sources == nil {
		sources = []imageopt.Source{}
	}
	respondJSON(w, http.StatusOK, SourcesResponse{
		Sources:  sources,
		Priority: imageopt.ShouldLoadWithPriority(q.Get("position")),
	})
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errBadNumber
	}
	return n, nil
}
