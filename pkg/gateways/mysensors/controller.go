package mysensors

import (
	"strconv"
	"sync"
	"time"

	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/sirupsen/logrus"
)

const (
	metricResponse   = "M"
	imperialResponse = "I"

	messageBacklog = 64
)

// messageWriter sends a message down the radio link.
type messageWriter interface {
	Write(message entities.Message) error
}

type classActionMapping map[entities.MessageClass]func(entities.Message)
type internalActionMapping map[entities.InternalType]func(entities.Message)

// Controller applies the gateway semantics to decoded radio messages:
// the node id handshake, registry bookkeeping and event fan out.
type Controller struct {
	writer   messageWriter
	registry Registry
	sink     EventSink
	metric   bool
	log      *logrus.Entry

	messages chan entities.Message
	done     chan struct{}
	stopOnce sync.Once

	classActions    classActionMapping
	internalActions internalActionMapping
}

func NewController(writer messageWriter, registry Registry, sink EventSink, metric bool, log *logrus.Entry) *Controller {
	controller := &Controller{
		writer:   writer,
		registry: registry,
		sink:     sink,
		metric:   metric,
		log:      log,
		messages: make(chan entities.Message, messageBacklog),
		done:     make(chan struct{}),
	}
	controller.classActions = newClassActionMapping(controller)
	controller.internalActions = newInternalActionMapping(controller)
	return controller
}

func newClassActionMapping(controller *Controller) classActionMapping {
	newClassActionMapping := make(classActionMapping)
	newClassActionMapping[entities.ClassPresentation] = controller.handlePresentation
	newClassActionMapping[entities.ClassSet] = controller.handleSet
	newClassActionMapping[entities.ClassRequest] = controller.handleRequest
	newClassActionMapping[entities.ClassInternal] = controller.handleInternal
	return newClassActionMapping
}

func newInternalActionMapping(controller *Controller) internalActionMapping {
	newInternalActionMapping := make(internalActionMapping)
	newInternalActionMapping[entities.IBatteryLevel] = controller.handleBatteryLevel
	newInternalActionMapping[entities.ITime] = controller.handleTimeRequest
	newInternalActionMapping[entities.IIDRequest] = controller.handleIDRequest
	newInternalActionMapping[entities.IConfig] = controller.handleConfigRequest
	newInternalActionMapping[entities.ILogMessage] = controller.handleLogMessage
	newInternalActionMapping[entities.ISketchName] = controller.handleSketchName
	newInternalActionMapping[entities.ISketchVersion] = controller.handleSketchVersion
	newInternalActionMapping[entities.IGatewayReady] = controller.handleGatewayReady
	return newInternalActionMapping
}

// Handle queues one decoded message. Safe to call from the serial read
// goroutine.
func (c *Controller) Handle(message entities.Message) {
	select {
	case c.messages <- message:
	case <-c.done:
	}
}

// Run dispatches queued messages until Stop is called.
func (c *Controller) Run() {
	for {
		select {
		case <-c.done:
			return
		case message := <-c.messages:
			c.dispatch(message)
		}
	}
}

func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *Controller) dispatch(message entities.Message) {
	action, supported := c.classActions[message.Class]
	if !supported {
		c.log.WithFields(logrus.Fields{"class": message.Class.String(), "node": message.NodeID}).Warn("unsupported message class")
		return
	}
	action(message)
}

func (c *Controller) handlePresentation(message entities.Message) {
	node, created := c.registry.GetOrCreateNode(int(message.NodeID))
	if message.ChildID == entities.NodeSensorID {
		// The node presents itself under the reserved child id; the
		// payload carries its protocol version.
		node.Version = message.Payload
	} else {
		node.UpsertSensor(entities.Sensor{
			ID:      int(message.ChildID),
			Type:    message.SubType,
			Version: message.Payload,
		})
	}
	c.registry.UpdateNode(node)
	c.saveRegistry()
	c.announceWhenNew(created, node)
	c.sink.PresentationReceived(PresentationEvent{Message: message, Node: node})
}

func (c *Controller) handleSet(message entities.Message) {
	c.sink.SetReceived(SetEvent{Message: message})
}

func (c *Controller) handleRequest(message entities.Message) {
	// No read-back path exists; the request is surfaced to subscribers
	// and left unanswered.
	c.log.WithFields(logrus.Fields{"node": message.NodeID, "subType": message.SubType}).Debug("request left unanswered")
	c.sink.RequestReceived(RequestEvent{Message: message})
}

func (c *Controller) handleInternal(message entities.Message) {
	if action, supported := c.internalActions[entities.InternalType(message.SubType)]; supported {
		action(message)
	} else {
		c.log.WithFields(logrus.Fields{"subType": message.SubType, "node": message.NodeID}).Warn("unhandled internal message")
	}
	c.sink.InternalReceived(InternalEvent{Message: message})
}

// handleIDRequest assigns the next free node id and answers on the
// same addressing the request came in with. The reply is sent even
// when persisting fails; the in-memory reservation is authoritative.
func (c *Controller) handleIDRequest(message entities.Message) {
	id, err := c.registry.NextNodeID()
	if err != nil {
		c.log.WithError(err).Error("node id request denied")
		return
	}
	c.saveRegistry()
	reply := message.
		WithAck(false).
		WithSubType(int(entities.IIDResponse)).
		WithPayload(strconv.Itoa(id))
	c.send(reply)
	c.log.WithFields(logrus.Fields{"node": id}).Info("node id assigned")
}

func (c *Controller) handleConfigRequest(message entities.Message) {
	units := metricResponse
	if !c.metric {
		units = imperialResponse
	}
	c.send(message.WithPayload(units))
}

func (c *Controller) handleTimeRequest(message entities.Message) {
	epoch := strconv.FormatInt(time.Now().Unix(), 10)
	c.send(message.WithAck(false).WithPayload(epoch))
}

func (c *Controller) handleLogMessage(message entities.Message) {
	c.log.WithFields(logrus.Fields{"node": message.NodeID}).Infof("node log: %s", message.Payload)
}

func (c *Controller) handleBatteryLevel(message entities.Message) {
	c.log.WithFields(logrus.Fields{"node": message.NodeID, "battery": message.Payload}).Debug("battery level reported")
}

func (c *Controller) handleSketchName(message entities.Message) {
	node, created := c.registry.GetOrCreateNode(int(message.NodeID))
	node.Name = message.Payload
	c.registry.UpdateNode(node)
	c.saveRegistry()
	c.announceWhenNew(created, node)
}

func (c *Controller) handleSketchVersion(message entities.Message) {
	node, created := c.registry.GetOrCreateNode(int(message.NodeID))
	node.Version = message.Payload
	c.registry.UpdateNode(node)
	c.saveRegistry()
	c.announceWhenNew(created, node)
}

func (c *Controller) handleGatewayReady(message entities.Message) {
	c.log.WithFields(logrus.Fields{"node": message.NodeID}).Info("gateway ready")
}

func (c *Controller) announceWhenNew(created bool, node entities.Node) {
	if created {
		c.sink.NodeDiscovered(NodeDiscoveredEvent{Node: node})
	}
}

func (c *Controller) saveRegistry() {
	if err := c.registry.Save(); err != nil {
		c.log.WithError(err).Error("node registry write failed")
	}
}

func (c *Controller) send(message entities.Message) {
	if err := c.writer.Write(message); err != nil {
		c.log.WithError(err).Error("serial reply failed")
	}
}
