// Package messaging wraps the NATS connection used to fan out partnership events.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// SubjectPartnershipFormed is suffixed with .<user_id> so each user can
// subscribe to their own notifications.
const SubjectPartnershipFormed = "partnership.formed"

var ErrNATSNotConnected = errors.New("nats not connected")

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 reconnects forever
}

// DefaultNATSConfig returns the defaults for the given url.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "peerpods",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// PartnershipFormed is published once per participant when a partnership is created.
type PartnershipFormed struct {
	PartnershipID string    `json:"partnership_id"`
	CommunityID   string    `json:"community_id"`
	UserID        string    `json:"user_id"`
	PartnerID     string    `json:"partner_id"`
	Score         int       `json:"score"`
	Reasons       []string  `json:"reasons"`
	FormedAt      time.Time `json:"formed_at"`
}

// PartnershipFormedEvents builds the notification for each side of the partnership.
func PartnershipFormedEvents(p *domain.Partnership, reasons []string) []PartnershipFormed {
	if reasons == nil {
		reasons = []string{}
	}

	events := make([]PartnershipFormed, 0, 2)
	for _, user := range []domain.UserID{p.UserA(), p.UserB()} {
		partner, _ := p.PartnerOf(user)
		events = append(events, PartnershipFormed{
			PartnershipID: p.ID().String(),
			CommunityID:   p.CommunityID().String(),
			UserID:        user.String(),
			PartnerID:     partner.String(),
			Score:         p.Score(),
			Reasons:       reasons,
			FormedAt:      p.CreatedAt(),
		})
	}
	return events
}

// PartnershipFormedSubject returns the subject a user's notifications go to.
func PartnershipFormedSubject(userID string) string {
	return SubjectPartnershipFormed + "." + userID
}

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn   *nats.Conn
	logger *logging.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSClient connects to NATS. returns nil if the URL is empty (messaging disabled).
func NewNATSClient(cfg NATSConfig, logger *logging.Logger) (*NATSClient, error) {
	if cfg.URL == "" {
		logger.Info("nats disabled: no NATS_URL configured")
		return nil, nil
	}

	log := logger.WithComponent("nats")
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err.Error())
				return
			}
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info("nats connected", "url", nc.ConnectedUrl())

	return &NATSClient{
		conn:   nc,
		logger: log,
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	if c == nil || c.conn == nil {
		return ErrNATSNotConnected
	}
	return c.conn.Publish(subject, data)
}

// PublishPartnershipFormed encodes and publishes one notification.
func (c *NATSClient) PublishPartnershipFormed(event PartnershipFormed) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding partnership event: %w", err)
	}
	if err := c.Publish(PartnershipFormedSubject(event.UserID), data); err != nil {
		return fmt.Errorf("publishing partnership event: %w", err)
	}
	return nil
}

// SubscribePartnershipFormed delivers a user's partnership notifications to handler.
func (c *NATSClient) SubscribePartnershipFormed(userID string, handler func(PartnershipFormed)) error {
	if c == nil || c.conn == nil {
		return ErrNATSNotConnected
	}

	subject := PartnershipFormedSubject(userID)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event PartnershipFormed
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Warn("dropping malformed partnership event", "subject", subject, "error", err.Error())
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// Unsubscribe removes the subscription for a subject.
func (c *NATSClient) Unsubscribe(subject string) error {
	c.mu.Lock()
	sub, ok := c.subs[subject]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for subject %s", subject)
	}
	delete(c.subs, subject)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", subject, err)
	}
	return nil
}

// HealthCheck reports whether the connection is usable.
func (c *NATSClient) HealthCheck(_ context.Context) error {
	if c == nil || c.conn == nil {
		return ErrNATSNotConnected
	}
	if status := c.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats status %s", status.String())
	}
	return nil
}

// Close drains subscriptions and the connection.
func (c *NATSClient) Close() {
	if c == nil || c.conn == nil {
		return
	}

	c.mu.Lock()
	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.Warn("nats drain failed", "subject", subject, "error", err.Error())
		}
	}
	c.subs = make(map[string]*nats.Subscription)
	c.mu.Unlock()

	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats connection drain failed", "error", err.Error())
	}
}
