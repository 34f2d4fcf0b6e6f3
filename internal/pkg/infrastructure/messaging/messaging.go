package messaging

import (
	"context"
	"fmt"
	"os"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TopicMessage is implemented by every domain event that gets published on
// the topic exchange.
type TopicMessage interface {
	ContentType() string
	TopicName() string
	Body() []byte
}

type MsgContext interface {
	PublishOnTopic(ctx context.Context, msg TopicMessage) error
	Close()
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Exchange string
}

func LoadConfigFromEnv() Config {
	cfg := Config{
		Host:     os.Getenv("RABBITMQ_HOST"),
		Port:     os.Getenv("RABBITMQ_PORT"),
		User:     os.Getenv("RABBITMQ_USER"),
		Password: os.Getenv("RABBITMQ_PASSWORD"),
		Exchange: os.Getenv("RABBITMQ_EXCHANGE"),
	}

	if cfg.Port == "" {
		cfg.Port = "5672"
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "care-alert"
	}

	return cfg
}

type msgContext struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func Initialize(ctx context.Context, cfg Config) (MsgContext, error) {
	log := logging.GetLoggerFromContext(ctx)

	uri := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Password, cfg.Host, cfg.Port)

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info().Str("host", cfg.Host).Str("exchange", cfg.Exchange).Msg("connected to message broker")

	return &msgContext{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
	}, nil
}

func (m *msgContext) PublishOnTopic(ctx context.Context, msg TopicMessage) error {
	return m.channel.PublishWithContext(ctx, m.exchange, msg.TopicName(), false, false,
		amqp.Publishing{
			ContentType: msg.ContentType(),
			Body:        msg.Body(),
		},
	)
}

func (m *msgContext) Close() {
	m.channel.Close()
	m.conn.Close()
}

// NewNoOpMessenger returns a messenger that drops everything. Used in dev
// mode and in tests.
func NewNoOpMessenger() MsgContext {
	return &noop{}
}

type noop struct{}

func (n *noop) PublishOnTopic(ctx context.Context, msg TopicMessage) error { return nil }
func (n *noop) Close()                                                     {}
