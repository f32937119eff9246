package network

import (
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func createNullLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	entry := logger.WithFields(logrus.Fields{"Context": "testing"})
	return entry, hook
}

func TestGivenHealthyConnectionThenStartSucceeds(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("connect").Return(nil)
	connMock.On("createChannel").Return(nil)
	connMock.On("notifyClose").Return().Maybe()
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.Start()

	assert.NoError(t, err)
	connMock.AssertCalled(t, "connect")
	connMock.AssertCalled(t, "createChannel")
}

func TestGivenDialFailureThenConnectFails(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("connect").Return(errors.New("connection refused"))
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.connect()

	assert.Error(t, err)
	connMock.AssertNotCalled(t, "createChannel")
}

func TestGivenChannelFailureThenConnectFails(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("connect").Return(nil)
	connMock.On("createChannel").Return(errors.New("channel exhausted"))
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.connect()

	assert.Error(t, err)
}

func TestGivenOpenConnectionThenStopClosesChannelAndConnection(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("isClosed").Return(false)
	connMock.On("closeChannel").Return(nil)
	connMock.On("close").Return(nil)
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.Stop()

	assert.NoError(t, err)
	connMock.AssertExpectations(t)
}

func TestGivenClosedConnectionThenStopIsNoOp(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("isClosed").Return(true)
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.Stop()

	assert.NoError(t, err)
	connMock.AssertNotCalled(t, "closeChannel")
	connMock.AssertNotCalled(t, "close")
}

func TestGivenSubscriptionThenDeliveriesAreConverted(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 1)
	connMock := new(connectionMock)
	connMock.On("exchangeDeclare", exchangeGateway, exchangeTypeDirect).Return(nil)
	connMock.On("queueDeclare", commandQueueName).Return(nil)
	connMock.On("queueBind", commandQueueName, BindingKeySendMessage, exchangeGateway).Return(nil)
	connMock.On("consume", commandQueueName).Return(deliveries, nil)
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)
	msgChan := make(chan InMsg, 1)

	err := handler.OnMessage(msgChan, commandQueueName, exchangeGateway, exchangeTypeDirect, BindingKeySendMessage)
	assert.NoError(t, err)

	deliveries <- amqp.Delivery{
		Exchange:      exchangeGateway,
		RoutingKey:    BindingKeySendMessage,
		CorrelationId: "correlation",
		Body:          []byte(`{"nodeId":3}`),
	}

	select {
	case received := <-msgChan:
		assert.Equal(t, exchangeGateway, received.Exchange)
		assert.Equal(t, BindingKeySendMessage, received.RoutingKey)
		assert.Equal(t, "correlation", received.CorrelationID)
		assert.Equal(t, []byte(`{"nodeId":3}`), received.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery was converted")
	}
}

func TestGivenBindFailureThenOnMessageFails(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("exchangeDeclare", exchangeGateway, exchangeTypeDirect).Return(nil)
	connMock.On("queueDeclare", commandQueueName).Return(nil)
	connMock.On("queueBind", commandQueueName, BindingKeySendMessage, exchangeGateway).Return(errors.New("access refused"))
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.OnMessage(make(chan InMsg), commandQueueName, exchangeGateway, exchangeTypeDirect, BindingKeySendMessage)

	assert.Error(t, err)
	connMock.AssertNotCalled(t, "consume")
}

func TestGivenTwoPublishesThenExchangeIsDeclaredOnce(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("exchangeDeclare", exchangeGateway, exchangeTypeDirect).Return(nil).Once()
	connMock.On("publish", exchangeGateway, routingKeySet, MessageEvent{NodeID: 1}, (*MessageOptions)(nil)).Return(nil)
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	assert.NoError(t, handler.PublishPersistentMessage(exchangeGateway, exchangeTypeDirect, routingKeySet, MessageEvent{NodeID: 1}, nil))
	assert.NoError(t, handler.PublishPersistentMessage(exchangeGateway, exchangeTypeDirect, routingKeySet, MessageEvent{NodeID: 1}, nil))

	connMock.AssertNumberOfCalls(t, "exchangeDeclare", 1)
	connMock.AssertNumberOfCalls(t, "publish", 2)
}

func TestGivenPublishFailureThenErrorIsWrapped(t *testing.T) {
	connMock := new(connectionMock)
	connMock.On("exchangeDeclare", exchangeGateway, exchangeTypeDirect).Return(nil)
	connMock.On("publish", exchangeGateway, routingKeySet, MessageEvent{}, (*MessageOptions)(nil)).Return(errors.New("channel closed"))
	logger, _ := createNullLogger()
	handler := NewAMQPHandler(connMock, logger)

	err := handler.PublishPersistentMessage(exchangeGateway, exchangeTypeDirect, routingKeySet, MessageEvent{}, nil)

	assert.ErrorContains(t, err, "error publishing message")
}
