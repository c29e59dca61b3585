package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher publica eventos de domínio em um exchange topic.
type Publisher interface {
	Publish(ctx context.Context, key string, env Envelope) error
	Close() error
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

// New conecta no RabbitMQ e declara o exchange topic durável.
func New(url, exchange string) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{conn: conn, exchange: exchange}, nil
}

func (r *rmqPublisher) Publish(ctx context.Context, key string, env Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msgID := env.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := env.Meta.CorrelationID
	if cid == "" {
		cid = uuid.NewString()
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     msgID,
			CorrelationId: cid,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"key":      key,
			"exchange": r.exchange,
		}).Debug("events: publicado")
	}
	return err
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}

// FallbackPublisher loga e descarta: usado quando não há broker configurado,
// para que o roteamento funcione igual em dev e teste.
type FallbackPublisher struct{}

func NewFallback() Publisher {
	return &FallbackPublisher{}
}

func (p *FallbackPublisher) Publish(ctx context.Context, key string, env Envelope) error {
	logrus.WithField("key", key).Debug("events: sem broker, evento descartado")
	return nil
}

func (p *FallbackPublisher) Close() error {
	return nil
}
