package messaging

import (
	"time"

	"github.com/fjod/artisan_market/internal/domain"
)

// DefaultReplies are the canned answers used for simulated replies.
var DefaultReplies = []string{
	"Thanks for your message. I will get back to you as soon as possible!",
	"I am checking my availability and will get back to you shortly.",
	"Your request interests me a lot. Could you tell me more about what you have in mind?",
	"I would be glad to discuss your project in more detail. When would you be available for a call?",
}

// DemoSeed returns the demo conversation with Marie Dubois for the given
// current user.
func DemoSeed(current domain.Participant) ([]domain.Conversation, []domain.Message) {
	marie := domain.Participant{ID: 1, Name: "Marie Dubois", Avatar: "/assets/artisan1.jpg"}
	at := func(hh, mm int) time.Time {
		return time.Date(2024, time.April, 2, hh, mm, 0, 0, time.UTC)
	}
	const lastText = "Yes, it is available! I can offer a personalised version if you like."

	conversations := []domain.Conversation{{
		ID:           1,
		Participants: []domain.Participant{current, marie},
		LastMessage:  &domain.LastMessage{Text: lastText, Timestamp: at(10, 35), Read: true},
	}}
	messages := []domain.Message{
		{
			ID: 1, ConversationID: 1, SenderID: marie.ID, ReceiverID: current.ID,
			SenderName: marie.Name, SenderAvatar: marie.Avatar,
			Text: "Hello! How can I help you?", Timestamp: at(10, 30), Read: true,
		},
		{
			ID: 2, ConversationID: 1, SenderID: current.ID, ReceiverID: marie.ID,
			SenderName: current.Name, SenderAvatar: current.Avatar,
			Text: "Hello, I am interested in your Spring collection. Is it available?", Timestamp: at(10, 32), Read: true,
		},
		{
			ID: 3, ConversationID: 1, SenderID: marie.ID, ReceiverID: current.ID,
			SenderName: marie.Name, SenderAvatar: marie.Avatar,
			Text: lastText, Timestamp: at(10, 35), Read: true,
		},
	}
	return conversations, messages
}
