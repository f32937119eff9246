package mysensors

import (
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/gateways/mysensors/network"
	"github.com/sirupsen/logrus"
)

// PresentationEvent is fired after a presentation was recorded in the
// node registry. Node carries the registry entry as it looks after the
// update.
type PresentationEvent struct {
	Message entities.Message
	Node    entities.Node
}

type SetEvent struct {
	Message entities.Message
}

type RequestEvent struct {
	Message entities.Message
}

type InternalEvent struct {
	Message entities.Message
}

// NodeDiscoveredEvent is fired once per node, the first time its id
// shows up on the radio link.
type NodeDiscoveredEvent struct {
	Node entities.Node
}

// EventSink receives gateway traffic after the controller applied its
// registry side effects.
type EventSink interface {
	PresentationReceived(event PresentationEvent)
	SetReceived(event SetEvent)
	RequestReceived(event RequestEvent)
	InternalReceived(event InternalEvent)
	NodeDiscovered(event NodeDiscoveredEvent)
}

type compositeSink struct {
	sinks []EventSink
}

func newCompositeSink(sinks ...EventSink) *compositeSink {
	return &compositeSink{sinks: sinks}
}

func (c *compositeSink) PresentationReceived(event PresentationEvent) {
	for _, sink := range c.sinks {
		sink.PresentationReceived(event)
	}
}

func (c *compositeSink) SetReceived(event SetEvent) {
	for _, sink := range c.sinks {
		sink.SetReceived(event)
	}
}

func (c *compositeSink) RequestReceived(event RequestEvent) {
	for _, sink := range c.sinks {
		sink.RequestReceived(event)
	}
}

func (c *compositeSink) InternalReceived(event InternalEvent) {
	for _, sink := range c.sinks {
		sink.InternalReceived(event)
	}
}

func (c *compositeSink) NodeDiscovered(event NodeDiscoveredEvent) {
	for _, sink := range c.sinks {
		sink.NodeDiscovered(event)
	}
}

// dedupSink drops repeated sensor readings before they reach the
// broker surfaces. Only set traffic is filtered; presentations and
// internals always pass.
type dedupSink struct {
	next         EventSink
	isDuplicated func(entities.Message) bool
}

func (d *dedupSink) PresentationReceived(event PresentationEvent) {
	d.next.PresentationReceived(event)
}

func (d *dedupSink) SetReceived(event SetEvent) {
	if d.isDuplicated(event.Message) {
		return
	}
	d.next.SetReceived(event)
}

func (d *dedupSink) RequestReceived(event RequestEvent) {
	d.next.RequestReceived(event)
}

func (d *dedupSink) InternalReceived(event InternalEvent) {
	d.next.InternalReceived(event)
}

func (d *dedupSink) NodeDiscovered(event NodeDiscoveredEvent) {
	d.next.NodeDiscovered(event)
}

// amqpEventSink mirrors gateway traffic on the message broker.
type amqpEventSink struct {
	publisher network.Publisher
	log       *logrus.Entry
}

func (a *amqpEventSink) PresentationReceived(event PresentationEvent) {
	a.logWhenFailed(a.publisher.PublishPresentation(event.Message))
}

func (a *amqpEventSink) SetReceived(event SetEvent) {
	a.logWhenFailed(a.publisher.PublishSet(event.Message))
}

func (a *amqpEventSink) RequestReceived(event RequestEvent) {
	a.logWhenFailed(a.publisher.PublishRequest(event.Message))
}

func (a *amqpEventSink) InternalReceived(event InternalEvent) {
	a.logWhenFailed(a.publisher.PublishInternal(event.Message))
}

func (a *amqpEventSink) NodeDiscovered(event NodeDiscoveredEvent) {
	a.logWhenFailed(a.publisher.PublishNodeDiscovered(event.Node))
}

func (a *amqpEventSink) logWhenFailed(err error) {
	if err != nil {
		a.log.WithError(err).Error("amqp publish failed")
	}
}

// mqttEventSink mirrors gateway traffic on the MQTT topic layout.
type mqttEventSink struct {
	forwarder *network.MQTTForwarder
	log       *logrus.Entry
}

func (m *mqttEventSink) PresentationReceived(event PresentationEvent) {
	m.logWhenFailed(m.forwarder.PublishMessage(event.Message))
}

func (m *mqttEventSink) SetReceived(event SetEvent) {
	m.logWhenFailed(m.forwarder.PublishMessage(event.Message))
}

func (m *mqttEventSink) RequestReceived(event RequestEvent) {
	m.logWhenFailed(m.forwarder.PublishMessage(event.Message))
}

func (m *mqttEventSink) InternalReceived(event InternalEvent) {
	m.logWhenFailed(m.forwarder.PublishMessage(event.Message))
}

func (m *mqttEventSink) NodeDiscovered(event NodeDiscoveredEvent) {
	m.logWhenFailed(m.forwarder.PublishDiscovery(event.Node))
}

func (m *mqttEventSink) logWhenFailed(err error) {
	if err != nil {
		m.log.WithError(err).Error("mqtt publish failed")
	}
}
