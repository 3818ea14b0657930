package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

type FavoritesHandler struct {
	favorites FavoritesStore
	logger    *zap.Logger
}

func NewFavoritesHandler(favorites FavoritesStore, logger *zap.Logger) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites, logger: logger}
}

type FavoritesResponse struct {
	IDs []int64 `json:"ids"`
}

type FavoriteStatusResponse struct {
	ProductID int64 `json:"product_id"`
	Favorite  bool  `json:"favorite"`
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, FavoritesResponse{IDs: h.favorites.IDs()})
}

func (h *FavoritesHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, FavoriteStatusResponse{ProductID: productID, Favorite: h.favorites.IsFavorite(productID)})
}

func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	if err := h.favorites.Toggle(r.Context(), productID); err != nil {
		h.logger.Warn("favorites not persisted", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, FavoriteStatusResponse{ProductID: productID, Favorite: h.favorites.IsFavorite(productID)})
}

func (h *FavoritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Clear(r.Context()); err != nil {
		h.logger.Warn("favorites not persisted", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, FavoritesResponse{IDs: h.favorites.IDs()})
}
