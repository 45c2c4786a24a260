package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"freshcart/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// OrderPlacedKey is the routing key of the event emitted after a checkout commits.
const OrderPlacedKey = "order.placed"

// Publisher delivers domain events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

// OrderPlaced describes one committed checkout submission.
type OrderPlaced struct {
	GroupID    uuid.UUID          `json:"group_id"`
	UserID     *int64             `json:"user_id"`
	Source     domain.OrderSource `json:"source"`
	LineCount  int                `json:"line_count"`
	GrandTotal decimal.Decimal    `json:"grand_total"`
	PlacedAt   time.Time          `json:"placed_at"`
}

// Envelope is the wire format written to the exchange.
type Envelope struct {
	Pattern    string      `json:"pattern"`
	Data       interface{} `json:"data"`
	ID         string      `json:"id"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func encode(routingKey string, payload interface{}, now time.Time) ([]byte, string, error) {
	env := Envelope{
		Pattern:    routingKey,
		Data:       payload,
		ID:         uuid.NewString(),
		OccurredAt: now.UTC(),
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return body, env.ID, nil
}

// publishChannel is the part of *amqp.Channel the publisher uses.
type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one live connection and channel. closed receives when the
// broker or the network tears the channel down.
type session struct {
	conn    io.Closer
	channel publishChannel
	closed  <-chan *amqp.Error
}

func (s *session) alive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

func (s *session) close() error {
	if err := s.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to close channel: %w", err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

type dialFunc func(url, exchange string) (*session, error)

// dialBroker connects, opens a channel and declares a durable topic exchange.
func dialBroker(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &session{
		conn:    conn,
		channel: channel,
		closed:  channel.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// AMQPPublisher publishes events to a topic exchange. A dropped channel is
// redialled on the next publish.
type AMQPPublisher struct {
	mu       sync.Mutex
	session  *session
	url      string
	exchange string
	dial     dialFunc
	logger   *zap.Logger
}

// NewAMQPPublisher dials the broker once up front so a bad URL fails at startup.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchange, dialBroker, logger)
}

func newAMQPPublisher(url, exchange string, dial dialFunc, logger *zap.Logger) (*AMQPPublisher, error) {
	sess, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}

	return &AMQPPublisher{
		session:  sess,
		url:      url,
		exchange: exchange,
		dial:     dial,
		logger:   logger,
	}, nil
}

// Publish sends payload as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	body, id, err := encode(routingKey, payload, now)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    now,
		Body:         body,
	}

	// amqp.Channel is not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, err := p.connected()
	if err != nil {
		return err
	}

	err = sess.channel.Publish(p.exchange, routingKey, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		// The close notification can trail the failure; redial and retry once.
		p.drop()
		if sess, err = p.connected(); err != nil {
			return err
		}
		err = sess.channel.Publish(p.exchange, routingKey, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("Event published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", routingKey),
		zap.String("message_id", id),
	)
	return nil
}

// connected returns a live session, redialling when the last one closed.
// Callers hold p.mu.
func (p *AMQPPublisher) connected() (*session, error) {
	if p.session != nil && p.session.alive() {
		return p.session, nil
	}
	if p.session != nil {
		p.drop()
	}

	sess, err := p.dial(p.url, p.exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to reconnect to broker: %w", err)
	}
	p.logger.Info("Reconnected to message broker", zap.String("exchange", p.exchange))
	p.session = sess
	return sess, nil
}

func (p *AMQPPublisher) drop() {
	p.logger.Warn("Message broker channel closed", zap.String("exchange", p.exchange))
	_ = p.session.close()
	p.session = nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.close()
	p.session = nil
	return err
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct {
	logger *zap.Logger
}

func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.logger.Debug("Event publishing disabled, dropping event", zap.String("routing_key", routingKey))
	return nil
}

func (p *NopPublisher) Close() error {
	return nil
}

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = (*NopPublisher)(nil)
)
