package entities

import "fmt"

// MessageClass is the command field of a radio message and selects how
// the sub-type and payload are interpreted.
type MessageClass int

const (
	ClassPresentation MessageClass = 0
	ClassSet          MessageClass = 1
	ClassRequest      MessageClass = 2
	ClassInternal     MessageClass = 3
	ClassStream       MessageClass = 4
)

func (c MessageClass) String() string {
	switch c {
	case ClassPresentation:
		return "presentation"
	case ClassSet:
		return "set"
	case ClassRequest:
		return "req"
	case ClassInternal:
		return "internal"
	case ClassStream:
		return "stream"
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// PresentationType describes the kind of sensor announced by a
// presentation message.
type PresentationType int

const (
	SDoor PresentationType = iota
	SMotion
	SSmoke
	SLight
	SDimmer
	SCover
	STemp
	SHum
	SBaro
	SWind
	SRain
	SUV
	SWeight
	SPower
	SHeater
	SDistance
	SLightLevel
	SArduinoNode
	SArduinoRelay
	SLock
	SIR
	SWater
	SAirQuality
	SCustom
	SDust
	SSceneController
)

// ValueType describes the quantity carried by set and req messages.
type ValueType int

const (
	VTemp ValueType = iota
	VHum
	VLight
	VDimmer
	VPressure
	VForecast
	VRain
	VRainRate
	VWind
	VGust
	VDirection
	VUV
	VWeight
	VDistance
	VImpedance
	VArmed
	VTripped
	VWatt
	VKWH
	VSceneOn
	VSceneOff
	VHeater
	VHeaterSW
	VLightLevel
	VVar1
	VVar2
	VVar3
	VVar4
	VVar5
	VUp
	VDown
	VStop
	VIRSend
	VIRReceive
	VFlow
	VVolume
	VLockStatus
	VDustLevel
	VVoltage
	VCurrent
)

// InternalType identifies housekeeping messages exchanged between nodes
// and the gateway.
type InternalType int

const (
	IBatteryLevel InternalType = iota
	ITime
	IVersion
	IIDRequest
	IIDResponse
	IInclusionMode
	IConfig
	IFindParent
	IFindParentResponse
	ILogMessage
	IChildren
	ISketchName
	ISketchVersion
	IReboot
	IGatewayReady
)

const (
	// GatewayNodeID is the reserved address of the gateway itself.
	GatewayNodeID = 0
	// BroadcastNodeID addresses every node; nodes without an assigned
	// id also send from it.
	BroadcastNodeID = 255
	// NodeSensorID is the child id used for node-level messages.
	NodeSensorID = 255
	// MaxNodeID is the highest address assignable to a sensor node.
	MaxNodeID = 254
	// MaxPayloadLength is the radio bound on payload bytes.
	MaxPayloadLength = 25
)

// Message is one parsed radio message. Values are immutable; use the
// With* methods to derive modified copies.
type Message struct {
	NodeID       uint8
	ChildID      uint8
	Class        MessageClass
	AckRequested bool
	SubType      int
	Payload      string
}

// NewMessage validates every field against the protocol tables and
// returns the assembled message.
func NewMessage(nodeID, childID int, class MessageClass, ack bool, subType int, payload string) (Message, error) {
	if nodeID < 0 || nodeID > BroadcastNodeID {
		return Message{}, fmt.Errorf("node id %d out of range", nodeID)
	}
	if childID < 0 || childID > NodeSensorID {
		return Message{}, fmt.Errorf("child id %d out of range", childID)
	}
	if !ValidSubType(class, subType) {
		return Message{}, fmt.Errorf("sub-type %d invalid for class %s", subType, class)
	}
	if len(payload) > MaxPayloadLength {
		return Message{}, fmt.Errorf("payload exceeds %d bytes", MaxPayloadLength)
	}
	return Message{
		NodeID:       uint8(nodeID),
		ChildID:      uint8(childID),
		Class:        class,
		AckRequested: ack,
		SubType:      subType,
		Payload:      payload,
	}, nil
}

// ValidSubType reports whether subType exists in the table of the given
// message class. Stream messages carry file segments whose sub-types
// are not tabled here, so any non-negative value passes.
func ValidSubType(class MessageClass, subType int) bool {
	switch class {
	case ClassPresentation:
		return subType >= int(SDoor) && subType <= int(SSceneController)
	case ClassSet, ClassRequest:
		return subType >= int(VTemp) && subType <= int(VCurrent)
	case ClassInternal:
		return subType >= int(IBatteryLevel) && subType <= int(IGatewayReady)
	case ClassStream:
		return subType >= 0
	}
	return false
}

// WithPayload returns a copy of the message carrying a new payload.
func (m Message) WithPayload(payload string) Message {
	m.Payload = payload
	return m
}

// WithSubType returns a copy of the message carrying a new sub-type.
func (m Message) WithSubType(subType int) Message {
	m.SubType = subType
	return m
}

// WithAck returns a copy of the message with the ack flag replaced.
func (m Message) WithAck(ack bool) Message {
	m.AckRequested = ack
	return m
}
