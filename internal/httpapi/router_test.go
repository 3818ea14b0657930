package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/artisan_market/internal/cart"
	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/favorites"
	"github.com/fjod/artisan_market/internal/kvstore"
	"github.com/fjod/artisan_market/internal/messaging"
	"github.com/fjod/artisan_market/internal/reviews"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler   http.Handler
	cart      *cart.Store
	favorites *favorites.Store
	messaging *messaging.Store
	reviews   *reviews.Aggregator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	bridge := kvstore.NewBridge(kvstore.NewMemoryBackend())

	ts := &testServer{
		cart:      cart.New(ctx, bridge),
		favorites: favorites.New(ctx, bridge),
		messaging: messaging.New(messaging.WithDemoSeed(), messaging.WithReplyDelay(time.Hour)),
		reviews:   reviews.New(reviews.WithSeed(reviews.DemoReviews())),
	}
	t.Cleanup(ts.messaging.Close)

	ts.handler = NewRouter(Deps{
		Cart:      ts.cart,
		Favorites: ts.favorites,
		Messaging: ts.messaging,
		Reviews:   ts.reviews,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCart_AddUpdateRemoveClear(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ID: 1, Title: "Vase", Price: 45})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ID: 1, Title: "Vase", Price: 45})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ID: 2, Title: "Bowl", Price: 20})
	resp := decode[CartResponse](t, rec)
	assert.Equal(t, 3, resp.ItemCount)
	assert.InDelta(t, 110.0, resp.Total, 1e-9)

	qty := 5
	rec = ts.do(t, http.MethodPut, "/api/v1/cart/items/2", UpdateQuantityRequestDTO{Quantity: &qty})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CartResponse](t, rec)
	assert.Equal(t, 7, resp.ItemCount)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cart/items/1", nil)
	resp = decode[CartResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2), resp.Items[0].ID)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cart/", nil)
	resp = decode[CartResponse](t, rec)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)
	assert.Equal(t, 0, resp.ItemCount)
}

func TestCart_UpdateQuantityZeroRemoves(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.cart.Add(context.Background(), domain.Product{ID: 4, Title: "Mug", Price: 12}))

	zero := 0
	rec := ts.do(t, http.MethodPut, "/api/v1/cart/items/4", UpdateQuantityRequestDTO{Quantity: &zero})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.cart.Items())
}

func TestCart_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   string
	}{
		{"malformed json", http.MethodPost, "/api/v1/cart/items", "{", "invalid_request"},
		{"zero id", http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ID: 0, Price: 1}, "invalid_product_id"},
		{"negative price", http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ID: 1, Price: -1}, "invalid_price"},
		{"missing quantity", http.MethodPut, "/api/v1/cart/items/1", map[string]any{}, "invalid_quantity"},
		{"bad id", http.MethodDelete, "/api/v1/cart/items/abc", nil, "invalid_product_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
	assert.Empty(t, ts.cart.Items())
}

func TestCart_Stream(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/cart/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan CartResponse, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var c CartResponse
				if json.Unmarshal([]byte(data), &c) == nil {
					events <- c
				}
			}
		}
	}()

	first := <-events
	assert.Empty(t, first.Items)

	require.NoError(t, ts.cart.Add(context.Background(), domain.Product{ID: 9, Title: "Plate", Price: 8}))
	require.Eventually(t, func() bool {
		select {
		case c := <-events:
			return c.ItemCount == 1
		default:
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestFavorites(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/favorites/3/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[FavoriteStatusResponse](t, rec).Favorite)

	ts.do(t, http.MethodPost, "/api/v1/favorites/1/toggle", nil)

	rec = ts.do(t, http.MethodGet, "/api/v1/favorites/", nil)
	assert.Equal(t, []int64{3, 1}, decode[FavoritesResponse](t, rec).IDs)

	rec = ts.do(t, http.MethodPost, "/api/v1/favorites/3/toggle", nil)
	assert.False(t, decode[FavoriteStatusResponse](t, rec).Favorite)

	rec = ts.do(t, http.MethodGet, "/api/v1/favorites/1", nil)
	assert.Equal(t, FavoriteStatusResponse{ProductID: 1, Favorite: true}, decode[FavoriteStatusResponse](t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/v1/favorites/", nil)
	assert.Empty(t, decode[FavoritesResponse](t, rec).IDs)
}

func TestConversations_ListAndSearch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/conversations/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ConversationsResponse](t, rec)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, int64(1), resp.Conversations[0].ID)
	assert.Equal(t, 0, resp.TotalUnread)

	rec = ts.do(t, http.MethodGet, "/api/v1/conversations/?q=marie", nil)
	assert.Len(t, decode[ConversationsResponse](t, rec).Conversations, 1)

	rec = ts.do(t, http.MethodGet, "/api/v1/conversations/?q=zzz", nil)
	assert.Empty(t, decode[ConversationsResponse](t, rec).Conversations)
}

func TestConversations_CreateAndSend(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/conversations/", domain.Participant{ID: 7, Name: "Jean Potier"})
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decode[ConversationDTO](t, rec)
	assert.Equal(t, int64(2), conv.ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/conversations/", domain.Participant{ID: 7, Name: "Jean Potier"})
	assert.Equal(t, int64(2), decode[ConversationDTO](t, rec).ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/conversations/2/messages", SendMessageRequestDTO{ReceiverID: 7, Text: "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sent := decode[SendMessageResponse](t, rec)
	assert.True(t, sent.Sent)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "Hello", sent.Messages[0].Text)
	assert.Equal(t, 1, ts.messaging.Pending())

	rec = ts.do(t, http.MethodPost, "/api/v1/conversations/99/messages", SendMessageRequestDTO{ReceiverID: 7, Text: "Hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SendMessageResponse](t, rec).Sent)

	rec = ts.do(t, http.MethodPost, "/api/v1/conversations/2/messages", SendMessageRequestDTO{ReceiverID: 7, Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/conversations/", domain.Participant{ID: 0, Name: "Nobody"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversations_GetUnknown(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/conversations/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/v1/conversations/42/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/conversations/1/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Message](t, rec), 3)
}

func TestConversations_MarkRead(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/conversations/1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]int](t, rec)
	assert.Equal(t, 0, got["unread"])
	assert.Equal(t, 0, got["total_unread"])
}

func TestReviews_Rating(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/artisans/1/rating", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[RatingResponse](t, rec)
	assert.InDelta(t, 4.3, resp.Rating, 1e-9)
	require.Len(t, resp.Distribution, 5)
	assert.Equal(t, domain.RatingBucket{Rating: 5, Count: 2, Percentage: 50}, resp.Distribution[0])

	rec = ts.do(t, http.MethodGet, "/api/v1/artisans/2/rating", nil)
	assert.Equal(t, 0.0, decode[RatingResponse](t, rec).Rating)

	rec = ts.do(t, http.MethodGet, "/api/v1/artisans/1/reviews", nil)
	assert.Len(t, decode[[]domain.Review](t, rec), 4)
}

func TestReviews_AddAndRespond(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/reviews", AddReviewRequestDTO{ArtisanID: 1, Name: "Ana", Rating: 6, Text: "ok"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_rating", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/reviews", AddReviewRequestDTO{ArtisanID: 1, Name: "Ana", Rating: 4, Text: " "})
	assert.Equal(t, "invalid_text", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/reviews", AddReviewRequestDTO{ArtisanID: 1, Name: "Ana", Rating: 4, Text: "Lovely glaze"})
	require.Equal(t, http.StatusCreated, rec.Code)
	added := decode[domain.Review](t, rec)
	assert.Equal(t, int64(5), added.ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/reviews/5/response", RespondRequestDTO{Text: "Thanks Ana"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[RespondResponse](t, rec)
	assert.True(t, resp.Attached)
	require.NotNil(t, resp.Review)
	assert.Equal(t, "Thanks Ana", resp.Review.Response)

	rec = ts.do(t, http.MethodPost, "/api/v1/reviews/99/response", RespondRequestDTO{Text: "Thanks"})
	assert.False(t, decode[RespondResponse](t, rec).Attached)
}

func TestBadges(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Badge](t, rec), 9)

	rec = ts.do(t, http.MethodPost, "/api/v1/badges/assign", domain.Artisan{Experience: 12, Rating: 4.8})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AssignBadgesResponse](t, rec)
	assert.Equal(t, []domain.BadgeID{domain.BadgeExpert, domain.BadgeQuality}, resp.Automatic)

	var ids []domain.BadgeID
	for _, b := range resp.Badges {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []domain.BadgeID{
		domain.BadgeCertified, domain.BadgeExpert, domain.BadgeHandmade, domain.BadgeQuality,
	}, ids)
}

func TestImages(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/images/optimize?url=/img/vase.jpg&w=320&fmt=avif&position=hero", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[OptimizeResponse](t, rec)
	assert.Equal(t, "/img/vase.jpg?w=320&q=85&fmt=avif", resp.URL)
	assert.True(t, resp.Priority)

	rec = ts.do(t, http.MethodGet, "/api/v1/images/sources?url=/img/vase.jpg&sizes=320,640", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sources := decode[SourcesResponse](t, rec)
	assert.Len(t, sources.Sources, 3)
	assert.False(t, sources.Priority)

	for _, path := range []string{
		"/api/v1/images/optimize?url=/a.jpg&w=-1",
		"/api/v1/images/optimize?url=/a.jpg&q=101",
		"/api/v1/images/optimize?url=/a.jpg&fmt=gif",
		"/api/v1/images/sources?url=/a.jpg&sizes=10,x",
	} {
		rec := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}
