package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"khidma/internal/shared/models"
)

// EventsExchange carries every lifecycle event the core emits, keyed by
// routing keys like trip.status.cancelled or order.offer.created.
const EventsExchange = "khidma_events"

type Publisher struct {
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func ConnectToRMQ(cfg *models.RabbitMQConfig) (*amqp091.Connection, *amqp091.Channel, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Password, cfg.Host, cfg.Port)

	var conn *amqp091.Connection
	var ch *amqp091.Channel
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp091.Dial(dsn)
		if err == nil {
			ch, err = conn.Channel()
			if err == nil {
				go monitorConnection(conn, dsn)
				return conn, ch, nil
			}
		}
		log.Printf("RabbitMQ not ready, retrying... (%d/10)", i+1)
		time.Sleep(3 * time.Second)
	}

	return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
}

func monitorConnection(conn *amqp091.Connection, url string) {
	notifyClose := make(chan *amqp091.Error)
	conn.NotifyClose(notifyClose)

	for {
		err := <-notifyClose
		if err == nil {
			// closed cleanly
			return
		}

		log.Printf("RabbitMQ connection lost: %v. Attempting to reconnect...", err)

		backoff := 5 * time.Second
		maxBackoff := 60 * time.Second

		for {
			time.Sleep(backoff)

			newConn, newErr := amqp091.Dial(url)
			if newErr != nil {
				log.Printf("Reconnection failed: %v. Retrying in %v...", newErr, backoff)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}

			log.Println("Successfully reconnected to RabbitMQ")

			conn = newConn
			notifyClose = make(chan *amqp091.Error)
			conn.NotifyClose(notifyClose)
			break
		}
	}
}

// Publish marshals data and publishes it on the events exchange under the
// given routing key. A publish failure never fails the triggering operation;
// callers log and move on.
func (p *Publisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		EventsExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// DeclareExchanges sets up the exchanges the server publishes to.
func DeclareExchanges(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}
