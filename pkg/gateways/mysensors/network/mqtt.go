package network

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesceMs   = 250

	commandTopicLevels      = 6
	qosAtLeastOnce     byte = 1
)

// CommandHandler receives messages decoded from the inbound command
// topic.
type CommandHandler func(entities.Message)

type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// MQTTForwarder republishes gateway traffic on the MySensors MQTT
// topic layout and feeds commands published under the inbound prefix
// back to the radio network.
type MQTTForwarder struct {
	config entities.MQTTConfig
	log    *logrus.Entry
	client mqttClient

	handlerMutex sync.RWMutex
	handler      CommandHandler
}

func NewMQTTForwarder(config entities.MQTTConfig, log *logrus.Entry) *MQTTForwarder {
	forwarder := &MQTTForwarder{config: config, log: log}
	options := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetOnConnectHandler(forwarder.resubscribe)
	if config.Username != "" {
		options.SetUsername(config.Username)
		options.SetPassword(config.Password)
	}
	forwarder.client = mqtt.NewClient(options)
	return forwarder
}

func (f *MQTTForwarder) Connect() error {
	token := f.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return errors.New("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "mqtt connect")
	}
	f.log.WithFields(logrus.Fields{"broker": f.config.Broker}).Info("mqtt broker connected")
	return nil
}

// PublishMessage mirrors one radio message on
// <prefix>-out/{node}/{child}/{class}/{ack}/{type}.
func (f *MQTTForwarder) PublishMessage(message entities.Message) error {
	ack := 0
	if message.AckRequested {
		ack = 1
	}
	topic := fmt.Sprintf("%s-out/%d/%d/%d/%d/%d",
		f.config.TopicPrefix, message.NodeID, message.ChildID, int(message.Class), ack, message.SubType)
	return f.publish(topic, message.Payload)
}

// PublishDiscovery announces a node on <prefix>-gw/discovery.
func (f *MQTTForwarder) PublishDiscovery(node entities.Node) error {
	body, err := json.Marshal(NewNodeAnnouncement(node))
	if err != nil {
		return errors.Wrap(err, "encode node announcement")
	}
	topic := fmt.Sprintf("%s-gw/discovery", f.config.TopicPrefix)
	return f.publish(topic, body)
}

// SubscribeCommands registers the handler for messages published under
// <prefix>-in/. The subscription is re-established every time the
// broker connection comes up.
func (f *MQTTForwarder) SubscribeCommands(handler CommandHandler) {
	f.handlerMutex.Lock()
	f.handler = handler
	f.handlerMutex.Unlock()
	if f.client.IsConnected() {
		f.subscribe(handler)
	}
}

func (f *MQTTForwarder) Disconnect() {
	if f.client.IsConnected() {
		f.client.Disconnect(disconnectQuiesceMs)
	}
}

func (f *MQTTForwarder) resubscribe(client mqtt.Client) {
	f.handlerMutex.RLock()
	handler := f.handler
	f.handlerMutex.RUnlock()
	if handler == nil {
		return
	}
	f.subscribe(handler)
}

func (f *MQTTForwarder) subscribe(handler CommandHandler) {
	topicFilter := fmt.Sprintf("%s-in/#", f.config.TopicPrefix)
	token := f.client.Subscribe(topicFilter, qosAtLeastOnce, func(client mqtt.Client, raw mqtt.Message) {
		message, err := f.decodeCommandTopic(raw.Topic(), string(raw.Payload()))
		if err != nil {
			f.log.WithError(err).WithFields(logrus.Fields{"topic": raw.Topic()}).Error("dropping mqtt command")
			return
		}
		handler(message)
	})
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			f.log.WithFields(logrus.Fields{"topic": topicFilter}).Error("mqtt subscribe timed out")
			return
		}
		if err := token.Error(); err != nil {
			f.log.WithError(err).WithFields(logrus.Fields{"topic": topicFilter}).Error("mqtt subscribe failed")
			return
		}
		f.log.WithFields(logrus.Fields{"topic": topicFilter}).Info("mqtt command subscription active")
	}()
}

func (f *MQTTForwarder) publish(topic string, payload interface{}) error {
	token := f.client.Publish(topic, qosAtLeastOnce, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return errors.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}
	return nil
}

func (f *MQTTForwarder) decodeCommandTopic(topic, payload string) (entities.Message, error) {
	levels := strings.Split(topic, "/")
	if len(levels) != commandTopicLevels {
		return entities.Message{}, errors.Errorf("command topic %q must have %d levels", topic, commandTopicLevels)
	}
	var numbers [commandTopicLevels - 1]int
	for i := range numbers {
		value, err := strconv.Atoi(levels[i+1])
		if err != nil {
			return entities.Message{}, errors.Errorf("command topic %q has a non-numeric level", topic)
		}
		numbers[i] = value
	}
	if numbers[3] != 0 && numbers[3] != 1 {
		return entities.Message{}, errors.Errorf("command topic %q ack level must be 0 or 1", topic)
	}
	return entities.NewMessage(numbers[0], numbers[1], entities.MessageClass(numbers[2]), numbers[3] == 1, numbers[4], payload)
}
