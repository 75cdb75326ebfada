package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sangini/invoicehub/db/models"
	"github.com/ziflex/lecho/v3"
)

// bufPool is a classic buffer pool pattern that allows more clever reuse of
// heap memory. Instead of allocating new memory every time we encode an
// event we reuse buffers from this pool; under concurrent publishers the
// pool scales with the number of goroutines.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const contentTypeJSON = "application/json"

// Routing keys published on the invoice and investment exchanges.
const (
	KeyInvoiceVerified  = "invoice.verified"
	KeyAuctionStarted   = "invoice.auction_started"
	KeyInvoiceFunded    = "invoice.funded"
	KeyInvoiceSettled   = "invoice.settled"
	KeyInvoiceOverdue   = "invoice.overdue"
	KeyInvoiceDefaulted = "invoice.defaulted"
	KeyDisputeRaised    = "invoice.dispute_raised"
	KeyDisputeResolved  = "invoice.dispute_resolved"
	KeyTokensMoved      = "invoice.tokens_transferred"
	KeyInvestmentMade   = "investment.completed"
	KeyOrderFilled      = "order.filled"
)

// Publisher emits lifecycle events for downstream consumers (notifications,
// analytics). A nil Publisher on the service disables eventing entirely.
type Publisher interface {
	PublishInvoice(ctx context.Context, key string, invoice *models.Invoice) error
	PublishInvestment(ctx context.Context, key string, investment *models.Investment) error
	Close() error
}

type AMQPPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel

	logger *lecho.Logger

	invoiceExchange    string
	investmentExchange string
	nonPersistent      bool
}

type PublisherOption = func(p *AMQPPublisher)

func WithLogger(logger *lecho.Logger) PublisherOption {
	return func(p *AMQPPublisher) {
		p.logger = logger
	}
}

func WithInvoiceExchange(exchange string) PublisherOption {
	return func(p *AMQPPublisher) {
		p.invoiceExchange = exchange
	}
}

func WithInvestmentExchange(exchange string) PublisherOption {
	return func(p *AMQPPublisher) {
		p.investmentExchange = exchange
	}
}

func WithNonPersistentDelivery() PublisherOption {
	return func(p *AMQPPublisher) {
		p.nonPersistent = true
	}
}

func NewAMQPPublisher(uri string, options ...PublisherOption) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	publisher := &AMQPPublisher{
		conn:               conn,
		channel:            channel,
		invoiceExchange:    "invoicehub_invoice",
		investmentExchange: "invoicehub_investment",
	}
	for _, opt := range options {
		opt(publisher)
	}

	for _, exchange := range []string{publisher.invoiceExchange, publisher.investmentExchange} {
		err = channel.ExchangeDeclare(
			exchange,
			"topic",
			// durable
			true,
			// auto delete
			false,
			// internal
			false,
			// no wait
			false,
			nil,
		)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	return publisher, nil
}

func (p *AMQPPublisher) PublishInvoice(ctx context.Context, key string, invoice *models.Invoice) error {
	return p.publish(ctx, p.invoiceExchange, key, invoice)
}

func (p *AMQPPublisher) PublishInvestment(ctx context.Context, key string, investment *models.Investment) error {
	return p.publish(ctx, p.investmentExchange, key, investment)
}

func (p *AMQPPublisher) publish(ctx context.Context, exchange, key string, payload interface{}) error {
	buf := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(buf)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return err
	}

	deliveryMode := amqp091.Persistent
	if p.nonPersistent {
		deliveryMode = amqp091.Transient
	}

	err := p.channel.PublishWithContext(ctx,
		exchange,
		key,
		// mandatory
		false,
		// immediate
		false,
		amqp091.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: deliveryMode,
			Body:         buf.Bytes(),
		},
	)
	if err != nil && p.logger != nil {
		p.logger.Errorf("Failed to publish %s event: %v", key, err)
	}
	return err
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
