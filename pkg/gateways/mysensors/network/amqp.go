package network

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	exchangeGateway    = "mysensors"
	exchangeTypeDirect = "direct"

	durable          = true
	deleteWhenUnused = false
	exclusive        = false
	noWait           = false
	internal         = false
	noAck            = true
	noLocal          = false
	consumerTag      = ""

	maxStartElapsedTime = 30 * time.Second
)

// InMsg is received when a subscribed queue delivers a message.
type InMsg struct {
	Exchange      string
	RoutingKey    string
	ReplyTo       string
	CorrelationID string
	Headers       map[string]interface{}
	Body          []byte
}

// MessageOptions represents the message publishing options.
type MessageOptions struct {
	Authorization string
	CorrelationID string
	ReplyTo       string
	Expiration    string
}

type Messaging interface {
	Start() error
	Stop() error
	OnMessage(msgChan chan InMsg, queueName, exchangeName, exchangeType, key string) error
	PublishPersistentMessage(exchange, exchangeType, key string, data interface{}, options *MessageOptions) error
}

// AMQPHandler handles the connection, queues and exchanges declared.
type AMQPHandler struct {
	conn              connection
	log               *logrus.Entry
	declaredExchanges map[string]struct{}
}

var exchangeLock *sync.Mutex = &sync.Mutex{}

func NewAMQPHandler(conn connection, log *logrus.Entry) *AMQPHandler {
	declaredExchanges := make(map[string]struct{})
	return &AMQPHandler{
		conn:              conn,
		log:               log,
		declaredExchanges: declaredExchanges,
	}
}

func (a *AMQPHandler) Start() error {
	startBackOff := backoff.NewExponentialBackOff()
	startBackOff.MaxElapsedTime = maxStartElapsedTime
	if err := backoff.Retry(a.connect, startBackOff); err != nil {
		return err
	}
	go a.notifyWhenClosed()
	return nil
}

func (a *AMQPHandler) Stop() error {
	if a.conn.isClosed() {
		return nil
	}
	if err := a.conn.closeChannel(); err != nil {
		return err
	}
	return a.conn.close()
}

// OnMessage binds queueName to the exchange under the given key and
// streams deliveries into msgChan.
func (a *AMQPHandler) OnMessage(msgChan chan InMsg, queueName, exchangeName, exchangeType, key string) error {
	if err := a.declareExchange(exchangeName, exchangeType); err != nil {
		return err
	}
	if err := a.conn.queueDeclare(queueName); err != nil {
		return err
	}
	if err := a.conn.queueBind(queueName, key, exchangeName, noWait, nil); err != nil {
		return err
	}
	deliveries, err := a.conn.consume(queueName, consumerTag, noAck, exclusive, noLocal, noWait, nil)
	if err != nil {
		return err
	}
	go convertDeliveryToInMsg(deliveries, msgChan)
	return nil
}

func (a *AMQPHandler) PublishPersistentMessage(exchange, exchangeType, key string, data interface{}, options *MessageOptions) error {
	if err := a.declareExchange(exchange, exchangeType); err != nil {
		return fmt.Errorf("error declaring exchange: %w", err)
	}
	if err := a.conn.publish(exchange, key, false, false, data, options); err != nil {
		return fmt.Errorf("error publishing message in channel: %w", err)
	}
	return nil
}

func (a *AMQPHandler) connect() error {
	if err := a.conn.connect(); err != nil {
		return err
	}
	return a.conn.createChannel()
}

func (a *AMQPHandler) declareExchange(name, exchangeType string) error {
	if a.exchangeAlreadyDeclared(name) {
		return nil
	}
	if err := a.conn.exchangeDeclare(name, exchangeType); err != nil {
		return err
	}
	exchangeLock.Lock()
	defer exchangeLock.Unlock()
	a.declaredExchanges[name] = struct{}{}
	return nil
}

func (a *AMQPHandler) exchangeAlreadyDeclared(name string) bool {
	exchangeLock.Lock()
	defer exchangeLock.Unlock()
	_, declared := a.declaredExchanges[name]
	return declared
}

// notifyWhenClosed blocks until the broker connection drops, then
// retries the connection until it comes back. Consumers are not
// re-established; the queues are durable and survive until then.
func (a *AMQPHandler) notifyWhenClosed() {
	errReason := <-a.conn.notifyClose(make(chan *amqp.Error))
	if errReason == nil {
		return
	}
	a.log.WithError(errReason).Error("amqp connection closed, reconnecting")

	initialIntervalSeconds := 30 * time.Second
	maxIntervalMinutes := 5 * time.Minute
	intervalMultiplier := 1.7
	neverStopTryReconnection := time.Duration(0)

	reconnectionBackOff := backoff.NewExponentialBackOff()
	reconnectionBackOff.InitialInterval = initialIntervalSeconds
	reconnectionBackOff.MaxInterval = maxIntervalMinutes
	reconnectionBackOff.Multiplier = intervalMultiplier
	reconnectionBackOff.MaxElapsedTime = neverStopTryReconnection

	reconnection := func() error {
		if err := a.connect(); err != nil {
			a.log.WithError(err).Error("amqp reconnection failed")
			return err
		}
		a.log.Info("amqp reconnection was successful")
		return nil
	}
	if err := backoff.Retry(reconnection, reconnectionBackOff); err != nil {
		return
	}
	go a.notifyWhenClosed()
}

func convertDeliveryToInMsg(deliveries <-chan amqp.Delivery, outMsg chan InMsg) {
	for delivery := range deliveries {
		outMsg <- InMsg{
			Exchange:      delivery.Exchange,
			RoutingKey:    delivery.RoutingKey,
			ReplyTo:       delivery.ReplyTo,
			CorrelationID: delivery.CorrelationId,
			Headers:       delivery.Headers,
			Body:          delivery.Body,
		}
	}
}
