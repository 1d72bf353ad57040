package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig configures AMQPNotifier.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// amqpPublisher is the part of *amqp.Channel the notifier uses.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// AMQPNotifier publishes events as JSON to a topic exchange, routed by kind.
// A closed channel or a failed publish drops the session; the next Notify
// dials again.
type AMQPNotifier struct {
	exchange string
	open     func() (amqpPublisher, io.Closer, error)

	mu   sync.Mutex
	ch   amqpPublisher
	conn io.Closer
}

// NewAMQPNotifier dials the broker once up front so bad settings fail at
// startup.
func NewAMQPNotifier(cfg AMQPConfig) (*AMQPNotifier, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		return nil, errors.New("amqp exchange required")
	}
	n := newAMQPNotifier(exchange, func() (amqpPublisher, io.Closer, error) {
		return dialAMQP(url, exchange)
	})
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func newAMQPNotifier(exchange string, open func() (amqpPublisher, io.Closer, error)) *AMQPNotifier {
	return &AMQPNotifier{exchange: exchange, open: open}
}

func dialAMQP(url, exchange string) (amqpPublisher, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp declare exchange %s: %w", exchange, err)
	}
	return ch, conn, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, ev Event) error {
	msg, err := publishing(ev)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil || n.ch.IsClosed() {
		n.drop()
		if err := n.connect(); err != nil {
			return fmt.Errorf("amqp reconnect: %w", err)
		}
	}
	if err := n.ch.PublishWithContext(ctx, n.exchange, string(ev.Kind), false, false, msg); err != nil {
		n.drop()
		return fmt.Errorf("amqp publish %s: %w", ev.Kind, err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	var err error
	if n.conn != nil {
		err = n.conn.Close()
	}
	n.ch, n.conn = nil, nil
	return err
}

// connect and drop expect n.mu to be held.
func (n *AMQPNotifier) connect() error {
	ch, conn, err := n.open()
	if err != nil {
		return err
	}
	n.ch, n.conn = ch, conn
	return nil
}

func (n *AMQPNotifier) drop() {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.ch, n.conn = nil, nil
}

func publishing(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.Submission.ID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Kind),
		Body:         body,
	}, nil
}
