// Package poller consumes checkout events and empties the cart of the user
// who checked out.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader is the subset of *kafka.Reader the poller uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties the cart.
type CartClearer interface {
	Clear(ctx context.Context) error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type Poller struct {
	cart   CartClearer
	userID string
	reader Reader
	logger *zap.Logger
	retry  time.Duration
}

func NewPoller(cart CartClearer, userID int64, cfg Config, logger *zap.Logger) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return NewWithReader(cart, userID, reader, logger)
}

func NewWithReader(cart CartClearer, userID int64, reader Reader, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cart:   cart,
		userID: strconv.FormatInt(userID, 10),
		reader: reader,
		logger: logger,
		retry:  time.Second,
	}
}

// Run reads until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.handleNext(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retry):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

// handleNext returns an error only when reading fails; bad payloads are
// logged and skipped.
func (p *Poller) handleNext(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	userID, err := checkoutUser(m.Value)
	if err != nil {
		p.logger.Warn("skipping checkout event", zap.Error(err), zap.Int64("offset", m.Offset))
		return nil
	}
	if userID != p.userID {
		return nil
	}

	if err := p.cart.Clear(ctx); err != nil {
		p.logger.Error("failed to clear cart", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	p.logger.Info("cart cleared after checkout", zap.String("user_id", userID))
	return nil
}

var errMissingUser = errors.New("missing or invalid user_id")

func checkoutUser(value []byte) (string, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(value, &payload); err != nil {
		return "", err
	}
	switch v := payload["user_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	return "", errMissingUser
}
