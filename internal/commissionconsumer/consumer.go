// Package commissionconsumer feeds payment completion events from Kafka to the commission trigger.
package commissionconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/pkg/configpkg"
)

const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// MessageReader is the subset of kafka.Reader used by the consumer.
//
//go:generate mockgen -source consumer.go -destination consumer_mock.go -package commissionconsumer
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler handles one payment completion.
type Handler interface {
	Handle(ctx context.Context, event domain.PaymentCompleted) (domain.CommissionResult, error)
}

// Consumer reads payment completion events and hands them to the handler.
type Consumer struct {
	reader  MessageReader
	handler Handler
	logger  zerolog.Logger
	backoff time.Duration
}

// NewReader returns kafka reader of the KAFKA_TOPIC in the KAFKA_GROUP_ID consumer group.
func NewReader(config configpkg.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  config.Brokers(),
		GroupID:  config.KafkaGroupID,
		Topic:    config.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// New returns Consumer.
func New(r MessageReader, h Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		handler: h,
		logger:  logger,
		backoff: minBackoff,
	}
}

// Run consumes messages until ctx is done and then closes the reader.
//
// An offset is committed only after its message was handled or found
// undecodable, so a crash replays the message and the trigger skips it.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Error().Err(err).Msg("cannot close kafka reader")
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		l := c.logger.With().
			Str("topic", msg.Topic).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Logger()

		if err := c.handle(l.WithContext(ctx), msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			l.Error().Err(err).Msg("cannot commit message")

			return err
		}
	}
}

// handle retries transient failures until the event is handled or ctx is done.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	l := zerolog.Ctx(ctx)

	var event domain.PaymentCompleted
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		l.Error().Err(err).Bytes("value", msg.Value).Msg("skipping undecodable payment event")
		return nil
	}

	backoff := c.backoff

	for {
		res, err := c.handler.Handle(ctx, event)
		if err == nil {
			l.Info().Str("order_id", event.OrderID).Str("outcome", string(res.Outcome)).Msg("payment event handled")
			return nil
		}

		if permanent(err) {
			l.Error().Err(err).Str("order_id", event.OrderID).Msg("skipping invalid payment event")
			return nil
		}

		l.Warn().Err(err).Str("order_id", event.OrderID).Dur("backoff", backoff).Msg("retrying payment event")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidOwner) ||
		errors.Is(err, domain.ErrMissingReference) ||
		errors.Is(err, domain.ErrInvalidAmount)
}
