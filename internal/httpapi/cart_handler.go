package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/artisan_market/internal/domain"
	"go.uber.org/zap"
)

type CartHandler struct {
	cart   CartStore
	logger *zap.Logger
}

func NewCartHandler(cart CartStore, logger *zap.Logger) *CartHandler {
	return &CartHandler{cart: cart, logger: logger}
}

type AddItemRequestDTO struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponse struct {
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     float64           `json:"total"`
}

func newCartResponse(items []domain.CartItem) CartResponse {
	resp := CartResponse{Items: items}
	if resp.Items == nil {
		resp.Items = []domain.CartItem{}
	}
	for _, it := range items {
		resp.ItemCount += it.Quantity
		resp.Total += it.Subtotal()
	}
	return resp
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be positive")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	err := h.cart.Add(r.Context(), domain.Product{ID: req.ID, Title: req.Title, Price: req.Price, Image: req.Image})
	h.logPersistError(r, err)
	respondJSON(w, http.StatusCreated, newCartResponse(h.cart.Items()))
}

// UpdateQuantity sets the quantity; zero or less removes the item.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	h.logPersistError(r, h.cart.SetQuantity(r.Context(), productID, *req.Quantity))
	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}

	h.logPersistError(r, h.cart.Remove(r.Context(), productID))
	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.logPersistError(r, h.cart.Clear(r.Context()))
	respondJSON(w, http.StatusOK, newCartResponse(h.cart.Items()))
}

// Stream sends the cart as server-sent events: once on connect and again
// after every change. Slow clients only see the latest cart.
func (h *CartHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}

	updates := make(chan CartResponse, 1)
	unsubscribe := h.cart.Subscribe(func(items []domain.CartItem) {
		latest := newCartResponse(items)
		select {
		case updates <- latest:
			return
		default:
		}
		// drop the stale update
		select {
		case <-updates:
		default:
		}
		updates <- latest
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case cart := <-updates:
			data, err := json.Marshal(cart)
			if err != nil {
				h.logger.Warn("failed to encode cart event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *CartHandler) logPersistError(r *http.Request, err error) {
	if err != nil {
		h.logger.Warn("cart not persisted", zap.Error(err), zap.String("request_id", getRequestID(r.Context())))
	}
}
