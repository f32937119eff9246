package network

const (
	commandQueueName = "mysensors-gateway-commands"

	// BindingKeySendMessage carries SendMessageRequest bodies bound for
	// the radio network.
	BindingKeySendMessage = "gateway.send"
	// BindingKeyReloadNodes asks the gateway to re-read its node
	// registry from disk.
	BindingKeyReloadNodes = "registry.reload"
)

type Subscriber interface {
	SubscribeToCommandMessages(msgChan chan InMsg) error
}

type msgSubscriber struct {
	amqp Messaging
}

func NewMsgSubscriber(amqp Messaging) Subscriber {
	return &msgSubscriber{amqp}
}

func (ms *msgSubscriber) SubscribeToCommandMessages(msgChan chan InMsg) error {
	var err error
	subscribe := func(msgChan chan InMsg, queue, exchange, kind, key string) {
		if err != nil {
			return
		}
		err = ms.amqp.OnMessage(msgChan, queue, exchange, kind, key)
	}

	subscribe(msgChan, commandQueueName, exchangeGateway, exchangeTypeDirect, BindingKeySendMessage)
	subscribe(msgChan, commandQueueName, exchangeGateway, exchangeTypeDirect, BindingKeyReloadNodes)

	return err
}
