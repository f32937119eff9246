package network

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

type connectionMock struct {
	mock.Mock
}

func (c *connectionMock) connect() error {
	args := c.Called()
	return args.Error(0)
}

func (c *connectionMock) createChannel() error {
	args := c.Called()
	return args.Error(0)
}

func (c *connectionMock) queueDeclare(name string) error {
	args := c.Called(name)
	return args.Error(0)
}

func (c *connectionMock) exchangeDeclare(name, exchangeType string) error {
	args := c.Called(name, exchangeType)
	return args.Error(0)
}

func (c *connectionMock) queueBind(queueName, key, exchangeName string, noWait bool, table amqp.Table) error {
	args := c.Called(queueName, key, exchangeName)
	return args.Error(0)
}

func (c *connectionMock) consume(queue string, consumer string, autoAck bool, exclusive bool, noLocal bool, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	called := c.Called(queue)
	deliveries, _ := called.Get(0).(chan amqp.Delivery)
	return deliveries, called.Error(1)
}

func (c *connectionMock) publish(exchange string, key string, mandatory bool, immediate bool, data interface{}, options *MessageOptions) error {
	args := c.Called(exchange, key, data, options)
	return args.Error(0)
}

func (c *connectionMock) isClosed() bool {
	args := c.Called()
	return args.Bool(0)
}

func (c *connectionMock) close() error {
	args := c.Called()
	return args.Error(0)
}

func (c *connectionMock) closeChannel() error {
	args := c.Called()
	return args.Error(0)
}

func (c *connectionMock) notifyClose(channel chan *amqp.Error) chan *amqp.Error {
	c.Called()
	return channel
}
