package httpapi

import (
	"net/http"
	"strings"

	"github.com/fjod/artisan_market/internal/domain"
)

type MessagingHandler struct {
	messaging MessagingStore
}

func NewMessagingHandler(messaging MessagingStore) *MessagingHandler {
	return &MessagingHandler{messaging: messaging}
}

type ConversationDTO struct {
	domain.Conversation
	Unread int `json:"unread"`
}

type ConversationsResponse struct {
	Conversations []ConversationDTO `json:"conversations"`
	TotalUnread   int               `json:"total_unread"`
}

type SendMessageRequestDTO struct {
	ReceiverID int64  `json:"receiver_id"`
	Text       string `json:"text"`
}

type SendMessageResponse struct {
	Sent     bool             `json:"sent"`
	Messages []domain.Message `json:"messages"`
}

func (h *MessagingHandler) conversationDTO(c domain.Conversation) ConversationDTO {
	return ConversationDTO{Conversation: c, Unread: h.messaging.UnreadCount(c.ID)}
}

// List returns conversations, filtered by the q query parameter when set.
func (h *MessagingHandler) List(w http.ResponseWriter, r *http.Request) {
	convs := h.messaging.SearchConversations(r.URL.Query().Get("q"))
	resp := ConversationsResponse{
		Conversations: make([]ConversationDTO, 0, len(convs)),
		TotalUnread:   h.messaging.TotalUnread(),
	}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, h.conversationDTO(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Create finds or creates the conversation with the posted participant.
func (h *MessagingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p domain.Participant
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.ID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_participant", "participant id must be positive")
		return
	}
	if strings.TrimSpace(p.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_participant", "participant name is required")
		return
	}

	id := h.messaging.CreateConversation(p)
	conv, _ := h.messaging.Conversation(id)
	respondJSON(w, http.StatusOK, h.conversationDTO(conv))
}

func (h *MessagingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "conversation_id")
	if !ok {
		return
	}
	conv, found := h.messaging.Conversation(id)
	if !found {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return
	}
	respondJSON(w, http.StatusOK, h.conversationDTO(conv))
}

func (h *MessagingHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "conversation_id")
	if !ok {
		return
	}
	if _, found := h.messaging.Conversation(id); !found {
		respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		return
	}
	respondJSON(w, http.StatusOK, h.messaging.ConversationMessages(id))
}

// Send posts a message. Unknown conversations or receivers are a no-op
// reported as sent=false.
func (h *MessagingHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "conversation_id")
	if !ok {
		return
	}
	var req SendMessageRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_text", "text must not be empty")
		return
	}

	sent := h.messaging.SendMessage(id, req.ReceiverID, req.Text)
	status := http.StatusOK
	if sent {
		status = http.StatusCreated
	}
	respondJSON(w, status, SendMessageResponse{Sent: sent, Messages: h.messaging.ConversationMessages(id)})
}

func (h *MessagingHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "conversation_id")
	if !ok {
		return
	}
	h.messaging.MarkConversationAsRead(id)
	respondJSON(w, http.StatusOK, map[string]int{
		"unread":       h.messaging.UnreadCount(id),
		"total_unread": h.messaging.TotalUnread(),
	})
}
