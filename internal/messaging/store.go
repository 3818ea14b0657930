// Package messaging holds conversations between the current user and
// artisans. Sending a message schedules one simulated reply from the other
// participant.
package messaging

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/observable"
	"go.uber.org/zap"
)

const DefaultReplyDelay = time.Second

var DefaultUser = domain.Participant{ID: 999, Name: "You", Avatar: "/assets/avatar.jpg"}

type Store struct {
	mu            sync.Mutex // serializes mutations and reply delivery
	conversations *observable.Subject[[]domain.Conversation]
	messages      *observable.Subject[[]domain.Message]

	current   domain.Participant
	delay     time.Duration
	scheduler Scheduler
	random    func(n int) int
	replies   []string
	now       func() time.Time
	logger    *zap.Logger

	pending   map[int64]Timer
	nextTimer int64
	closed    bool
}

type config struct {
	current       domain.Participant
	demoSeed      bool
	conversations []domain.Conversation
	messages      []domain.Message
	delay         time.Duration
	scheduler     Scheduler
	random        func(n int) int
	replies       []string
	now           func() time.Time
	logger        *zap.Logger
}

type Option func(*config)

func WithCurrentUser(p domain.Participant) Option {
	return func(c *config) { c.current = p }
}

// WithSeed sets the initial conversations and messages.
func WithSeed(conversations []domain.Conversation, messages []domain.Message) Option {
	return func(c *config) {
		c.demoSeed = false
		c.conversations = conversations
		c.messages = messages
	}
}

// WithDemoSeed starts the store with the Marie Dubois demo conversation.
func WithDemoSeed() Option {
	return func(c *config) { c.demoSeed = true }
}

func WithReplyDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

func WithScheduler(s Scheduler) Option {
	return func(c *config) { c.scheduler = s }
}

// WithRandom sets the source used to pick a canned reply; it must return a
// value in [0, n).
func WithRandom(f func(n int) int) Option {
	return func(c *config) { c.random = f }
}

func WithReplies(replies []string) Option {
	return func(c *config) { c.replies = replies }
}

func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(opts ...Option) *Store {
	cfg := config{
		current:   DefaultUser,
		delay:     DefaultReplyDelay,
		scheduler: realScheduler{},
		random:    rand.IntN,
		replies:   DefaultReplies,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.demoSeed {
		cfg.conversations, cfg.messages = DemoSeed(cfg.current)
	}

	conversations := make([]domain.Conversation, 0, len(cfg.conversations))
	for _, c := range cfg.conversations {
		conversations = append(conversations, c.Clone())
	}

	return &Store{
		conversations: observable.NewSubject(conversations,
			observable.WithName("conversations"), observable.WithLogger(cfg.logger)),
		messages: observable.NewSubject(append([]domain.Message{}, cfg.messages...),
			observable.WithName("messages"), observable.WithLogger(cfg.logger)),
		current:   cfg.current,
		delay:     cfg.delay,
		scheduler: cfg.scheduler,
		random:    cfg.random,
		replies:   cfg.replies,
		now:       cfg.now,
		logger:    cfg.logger,
		pending:   make(map[int64]Timer),
	}
}

func (s *Store) CurrentUser() domain.Participant {
	return s.current
}

// CreateConversation returns the id of a conversation that already includes
// p, or creates one between the current user and p.
func (s *Store) CreateConversation(p domain.Participant) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.conversations.Value()
	for _, c := range conversations {
		if c.HasParticipant(p.ID) {
			return c.ID
		}
	}

	conv := domain.Conversation{
		ID:           nextConversationID(conversations),
		Participants: []domain.Participant{s.current, p},
	}
	s.conversations.Publish(append(cloneConversations(conversations), conv))
	s.logger.Debug("conversation created", zap.Int64("conversation_id", conv.ID), zap.Int64("participant_id", p.ID))
	return conv.ID
}

// SendMessage appends a message from the current user and schedules a reply
// from the receiver. It reports false and does nothing when text is blank or
// the conversation or receiver is unknown.
func (s *Store) SendMessage(conversationID, receiverID int64, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.conversations.Value()
	i := conversationIndex(conversations, conversationID)
	if i < 0 {
		return false
	}
	if !conversations[i].HasParticipant(receiverID) {
		return false
	}

	now := s.now()
	messages := s.messages.Value()
	msg := domain.Message{
		ID:             nextMessageID(messages),
		ConversationID: conversationID,
		SenderID:       s.current.ID,
		ReceiverID:     receiverID,
		SenderName:     s.current.Name,
		SenderAvatar:   s.current.Avatar,
		Text:           text,
		Timestamp:      now,
		Read:           false,
	}
	s.messages.Publish(append(slices.Clone(messages), msg))

	updated := cloneConversations(conversations)
	updated[i].LastMessage = &domain.LastMessage{Text: text, Timestamp: now, Read: false}
	s.conversations.Publish(updated)

	s.scheduleReply(conversationID, receiverID)
	return true
}

// scheduleReply must be called with s.mu held.
func (s *Store) scheduleReply(conversationID, senderID int64) {
	if s.closed {
		return
	}
	s.nextTimer++
	id := s.nextTimer
	s.pending[id] = s.scheduler.AfterFunc(s.delay, func() {
		s.deliverReply(id, conversationID, senderID)
	})
}

func (s *Store) deliverReply(timerID, conversationID, senderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, timerID)
	if s.closed {
		return
	}

	conversations := s.conversations.Value()
	i := conversationIndex(conversations, conversationID)
	if i < 0 {
		s.logger.Debug("reply dropped, conversation gone", zap.Int64("conversation_id", conversationID))
		return
	}
	sender, ok := conversations[i].Participant(senderID)
	if !ok {
		s.logger.Debug("reply dropped, sender gone", zap.Int64("conversation_id", conversationID))
		return
	}
	if len(s.replies) == 0 {
		return
	}

	text := s.replies[s.random(len(s.replies))]
	now := s.now()
	messages := s.messages.Value()
	reply := domain.Message{
		ID:             nextMessageID(messages),
		ConversationID: conversationID,
		SenderID:       sender.ID,
		ReceiverID:     s.current.ID,
		SenderName:     sender.Name,
		SenderAvatar:   sender.Avatar,
		Text:           text,
		Timestamp:      now,
		Read:           true,
	}
	s.messages.Publish(append(slices.Clone(messages), reply))

	updated := cloneConversations(conversations)
	updated[i].LastMessage = &domain.LastMessage{Text: text, Timestamp: now, Read: true}
	s.conversations.Publish(updated)
}

// MarkConversationAsRead marks every unread message addressed to the current
// user in the conversation as read.
func (s *Store) MarkConversationAsRead(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := slices.Clone(s.messages.Value())
	changed := false
	for i := range messages {
		m := &messages[i]
		if m.ConversationID == conversationID && m.ReceiverID == s.current.ID && !m.Read {
			m.Read = true
			changed = true
		}
	}
	if !changed {
		return
	}
	s.messages.Publish(messages)

	conversations := s.conversations.Value()
	i := conversationIndex(conversations, conversationID)
	if i < 0 || conversations[i].LastMessage == nil || conversations[i].LastMessage.Read {
		return
	}
	updated := cloneConversations(conversations)
	updated[i].LastMessage.Read = true
	s.conversations.Publish(updated)
}

func (s *Store) Conversations() []domain.Conversation {
	return cloneConversations(s.conversations.Value())
}

func (s *Store) Conversation(id int64) (domain.Conversation, bool) {
	conversations := s.conversations.Value()
	if i := conversationIndex(conversations, id); i >= 0 {
		return conversations[i].Clone(), true
	}
	return domain.Conversation{}, false
}

func (s *Store) Messages() []domain.Message {
	return slices.Clone(s.messages.Value())
}

// ConversationMessages returns the messages of one conversation in send order.
func (s *Store) ConversationMessages(conversationID int64) []domain.Message {
	return filterMessages(s.messages.Value(), conversationID)
}

// SearchConversations returns the conversations whose other participant's
// name or last message text contains term, ignoring case. An empty term
// matches everything.
func (s *Store) SearchConversations(term string) []domain.Conversation {
	conversations := s.Conversations()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return conversations
	}

	out := make([]domain.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if s.matches(c, term) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) matches(c domain.Conversation, term string) bool {
	for _, p := range c.Participants {
		if p.ID != s.current.ID && strings.Contains(strings.ToLower(p.Name), term) {
			return true
		}
	}
	return c.LastMessage != nil && strings.Contains(strings.ToLower(c.LastMessage.Text), term)
}

// UnreadCount is the number of unread messages addressed to the current user
// in the conversation.
func (s *Store) UnreadCount(conversationID int64) int {
	n := 0
	for _, m := range s.messages.Value() {
		if m.ConversationID == conversationID && m.ReceiverID == s.current.ID && !m.Read {
			n++
		}
	}
	return n
}

func (s *Store) TotalUnread() int {
	n := 0
	for _, m := range s.messages.Value() {
		if m.ReceiverID == s.current.ID && !m.Read {
			n++
		}
	}
	return n
}

func (s *Store) SubscribeConversations(fn observable.Observer[[]domain.Conversation]) func() {
	return s.conversations.Subscribe(fn)
}

func (s *Store) SubscribeMessages(fn observable.Observer[[]domain.Message]) func() {
	return s.messages.Subscribe(fn)
}

func (s *Store) SubscribeConversationMessages(conversationID int64, fn observable.Observer[[]domain.Message]) func() {
	return observable.Map(s.messages, func(ms []domain.Message) []domain.Message {
		return filterMessages(ms, conversationID)
	}, fn)
}

// Close cancels pending replies. Later sends still work but schedule nothing.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// Pending is the number of scheduled replies that have not fired yet.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func conversationIndex(conversations []domain.Conversation, id int64) int {
	return slices.IndexFunc(conversations, func(c domain.Conversation) bool { return c.ID == id })
}

func cloneConversations(in []domain.Conversation) []domain.Conversation {
	out := make([]domain.Conversation, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func filterMessages(messages []domain.Message, conversationID int64) []domain.Message {
	out := make([]domain.Message, 0)
	for _, m := range messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

func nextConversationID(conversations []domain.Conversation) int64 {
	var highest int64
	for _, c := range conversations {
		highest = max(highest, c.ID)
	}
	return highest + 1
}

func nextMessageID(messages []domain.Message) int64 {
	var highest int64
	for _, m := range messages {
		highest = max(highest, m.ID)
	}
	return highest + 1
}
