package network

import "github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"

const (
	routingKeyDiscovered   = "node.discovered"
	routingKeyPresentation = "message.presentation"
	routingKeySet          = "message.set"
	routingKeyRequest      = "message.request"
	routingKeyInternal     = "message.internal"

	defaultExpirationTime = "2000"
)

type Publisher interface {
	PublishNodeDiscovered(node entities.Node) error
	PublishPresentation(message entities.Message) error
	PublishSet(message entities.Message) error
	PublishRequest(message entities.Message) error
	PublishInternal(message entities.Message) error
}

type msgPublisher struct {
	amqp Messaging
}

func NewMsgPublisher(amqp Messaging) Publisher {
	return &msgPublisher{amqp}
}

func (mp *msgPublisher) PublishNodeDiscovered(node entities.Node) error {
	options := MessageOptions{
		Expiration: defaultExpirationTime,
	}
	announcement := NewNodeAnnouncement(node)
	return mp.amqp.PublishPersistentMessage(exchangeGateway, exchangeTypeDirect, routingKeyDiscovered, announcement, &options)
}

func (mp *msgPublisher) PublishPresentation(message entities.Message) error {
	return mp.publishMessageEvent(routingKeyPresentation, message)
}

func (mp *msgPublisher) PublishSet(message entities.Message) error {
	return mp.publishMessageEvent(routingKeySet, message)
}

func (mp *msgPublisher) PublishRequest(message entities.Message) error {
	return mp.publishMessageEvent(routingKeyRequest, message)
}

func (mp *msgPublisher) PublishInternal(message entities.Message) error {
	return mp.publishMessageEvent(routingKeyInternal, message)
}

func (mp *msgPublisher) publishMessageEvent(key string, message entities.Message) error {
	options := MessageOptions{
		Expiration: defaultExpirationTime,
	}
	event := NewMessageEvent(message)
	return mp.amqp.PublishPersistentMessage(exchangeGateway, exchangeTypeDirect, key, event, &options)
}
