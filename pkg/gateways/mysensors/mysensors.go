package mysensors

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/gateways/mysensors/network"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/gateways/mysensors/serial"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DUPLICATION_FILTER            = "0"
	FILTER_CAPACITY               = "1000000"
	DUPLICATION_PROBABILITY       = "0.01"
	RESET_FILTER_USAGE_PERCENTAGE = "0.75"
)

type bindingKeyActionMapping map[string]func(network.InMsg)

// Integration owns the serial gateway, the node registry and the
// broker surfaces, and routes traffic between them.
type Integration struct {
	config     entities.GatewayConfig
	log        *logrus.Entry
	registry   Registry
	gateway    *serial.Gateway
	controller *Controller

	amqp       network.Messaging
	publisher  network.Publisher
	subscriber network.Subscriber
	forwarder  *network.MQTTForwarder

	commands       chan network.InMsg
	commandActions bindingKeyActionMapping

	filter                          *duplicationFilter
	isMeasurementDuplicatedFunction func(entities.Message) bool

	done     chan struct{}
	stopOnce sync.Once
}

// LoadConfiguration reads a gateway configuration file and fills the
// defaults in.
func LoadConfiguration(filepath string) (entities.GatewayConfig, error) {
	config, err := utils.ConfigurationParser(filepath, entities.GatewayConfig{})
	if err != nil {
		return config, errors.Wrap(err, "load gateway configuration")
	}
	return config.WithDefaults(), nil
}

func NewIntegration(config entities.GatewayConfig, log *logrus.Entry) (*Integration, error) {
	config = config.WithDefaults()
	integration := &Integration{
		config:   config,
		log:      log,
		commands: make(chan network.InMsg),
		done:     make(chan struct{}),
	}
	integration.commandActions = newBindingKeyActionMapping(integration)
	integration.setUpDuplicationFilter()

	fileManagement := new(fileManagement)
	integration.registry = NewNodeRegistry(config.RegistryFilepath, fileManagement, log)
	if err := integration.registry.Load(); err != nil {
		return nil, errors.Wrap(err, "new mysensors integration")
	}

	var sinks []EventSink
	if config.AMQP.URL != "" {
		amqpConnection := network.NewAmqpConnection(config.AMQP.URL)
		integration.amqp = network.NewAMQPHandler(amqpConnection, log)
		if err := integration.amqp.Start(); err != nil {
			log.WithError(err).Error("amqp connection error")
		} else {
			log.Info("amqp connected")
		}
		integration.publisher = network.NewMsgPublisher(integration.amqp)
		integration.subscriber = network.NewMsgSubscriber(integration.amqp)
		sinks = append(sinks, &amqpEventSink{publisher: integration.publisher, log: log})
	}
	if config.MQTT.Broker != "" {
		integration.forwarder = network.NewMQTTForwarder(config.MQTT, log)
		sinks = append(sinks, &mqttEventSink{forwarder: integration.forwarder, log: log})
	}
	sink := &dedupSink{
		next:         newCompositeSink(sinks...),
		isDuplicated: integration.isMeasurementDuplicatedFunction,
	}

	integration.gateway = serial.NewGateway(serial.Config{
		Device:      config.Port,
		Baud:        config.BaudRate,
		ReadTimeout: time.Duration(config.ReadTimeoutMs) * time.Millisecond,
	}, func(message entities.Message) {
		integration.controller.Handle(message)
	}, log)
	integration.controller = NewController(integration.gateway, integration.registry, sink, config.Metric, log)

	return integration, nil
}

func newBindingKeyActionMapping(integration *Integration) bindingKeyActionMapping {
	newBindingKeyActionMapping := make(bindingKeyActionMapping)
	newBindingKeyActionMapping[network.BindingKeySendMessage] = integration.sendMessageCommand
	newBindingKeyActionMapping[network.BindingKeyReloadNodes] = integration.reloadNodesCommand
	return newBindingKeyActionMapping
}

func (i *Integration) setUpDuplicationFilter() {
	maximumPercentageFilterUsage, err := strconv.ParseFloat(getValueFromEnvironmentVariable("RESET_FILTER_USAGE_PERCENTAGE", RESET_FILTER_USAGE_PERCENTAGE), 32)
	if err != nil {
		panic("RESET_FILTER_USAGE_PERCENTAGE environment variable with invalid value.")
	}
	filterCapacity, capacityErr := strconv.ParseUint(getValueFromEnvironmentVariable("FILTER_CAPACITY", FILTER_CAPACITY), 10, 0)
	duplicationProbability, probabilityErr := strconv.ParseFloat(getValueFromEnvironmentVariable("DUPLICATION_PROBABILITY", DUPLICATION_PROBABILITY), 32)
	if capacityErr != nil || probabilityErr != nil {
		panic("FILTER_CAPACITY and DUPLICATION_PROBABILITY environment variables with invalid values.")
	}
	i.filter = newDuplicationFilter(uint(filterCapacity), duplicationProbability, float32(maximumPercentageFilterUsage))

	duplicationFilterFunctionMapping := map[string]func(entities.Message) bool{
		DUPLICATION_FILTER: func(message entities.Message) bool { return false },
		"1":                i.isMeasurementDuplicated,
	}
	enableDuplicationFilter := getValueFromEnvironmentVariable("DUPLICATION_FILTER", DUPLICATION_FILTER)
	i.isMeasurementDuplicatedFunction = duplicationFilterFunctionMapping[enableDuplicationFilter]
	if i.isMeasurementDuplicatedFunction == nil {
		i.isMeasurementDuplicatedFunction = duplicationFilterFunctionMapping[DUPLICATION_FILTER]
	}
}

// Start opens the serial link and brings the broker surfaces up. The
// serial connection keeps retrying in the background when the device
// is not there yet.
func (i *Integration) Start() error {
	if err := i.gateway.Connect(); err != nil {
		i.log.WithError(err).Error("serial connection error")
	}
	go i.gateway.Run()
	go i.controller.Run()

	if i.subscriber != nil {
		if err := i.subscriber.SubscribeToCommandMessages(i.commands); err != nil {
			return errors.Wrap(err, "subscribe to command messages")
		}
		go i.handleCommandMessages()
	}
	if i.forwarder != nil {
		i.forwarder.SubscribeCommands(i.Send)
		if err := i.forwarder.Connect(); err != nil {
			i.log.WithError(err).Error("mqtt connection error")
		}
	}
	return nil
}

func (i *Integration) Close() error {
	i.stopOnce.Do(func() {
		close(i.done)
	})
	i.controller.Stop()
	i.gateway.Stop()
	if i.forwarder != nil {
		i.forwarder.Disconnect()
	}
	if i.amqp != nil {
		return i.amqp.Stop()
	}
	return nil
}

// Send writes one message to the radio network.
func (i *Integration) Send(message entities.Message) {
	if err := i.gateway.Write(message); err != nil {
		i.log.WithError(err).Error("serial write failed")
	}
}

// ReloadRegistry re-reads the node registry file, replacing the
// in-memory node set.
func (i *Integration) ReloadRegistry() error {
	return i.registry.Load()
}

// SetNodeAlias names a node and persists the change.
func (i *Integration) SetNodeAlias(id int, alias string) error {
	return i.registry.SetNodeAlias(id, alias)
}

func (i *Integration) Node(id int) (entities.Node, bool) {
	return i.registry.Node(id)
}

func (i *Integration) Nodes() []entities.Node {
	return i.registry.Nodes()
}

// Stats reports serial link counters.
func (i *Integration) Stats() serial.Stats {
	return i.gateway.Stats()
}

func (i *Integration) handleCommandMessages() {
	for {
		select {
		case <-i.done:
			return
		case message := <-i.commands:
			if action, ok := i.commandActions[message.RoutingKey]; ok {
				action(message)
			}
		}
	}
}

func (i *Integration) sendMessageCommand(message network.InMsg) {
	var request network.SendMessageRequest
	if err := json.Unmarshal(message.Body, &request); err != nil {
		i.log.WithError(err).Error("invalid send command")
		return
	}
	outbound, err := entities.NewMessage(request.NodeID, request.ChildID, entities.MessageClass(request.Class), request.Ack, request.SubType, request.Payload)
	if err != nil {
		i.log.WithError(err).Error("invalid send command")
		return
	}
	i.Send(outbound)
}

func (i *Integration) reloadNodesCommand(message network.InMsg) {
	if err := i.ReloadRegistry(); err != nil {
		i.log.WithError(err).Error("node registry reload failed")
		return
	}
	i.log.Info("node registry reloaded")
}

func (i *Integration) isMeasurementDuplicated(message entities.Message) bool {
	if i.filter.isDuplicated(message) {
		return true
	}
	i.filter.remember(message)
	return false
}

func getValueFromEnvironmentVariable(variableName, defaultValue string) string {
	value := os.Getenv(variableName)
	if value != "" {
		return value
	}
	return defaultValue
}
