package network

import "github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"

// MessageEvent mirrors one radio message on the broker surface.
type MessageEvent struct {
	NodeID  int    `json:"nodeId"`
	ChildID int    `json:"childId"`
	Class   int    `json:"class"`
	Ack     bool   `json:"ack"`
	SubType int    `json:"subType"`
	Payload string `json:"payload"`
}

func NewMessageEvent(message entities.Message) MessageEvent {
	return MessageEvent{
		NodeID:  int(message.NodeID),
		ChildID: int(message.ChildID),
		Class:   int(message.Class),
		Ack:     message.AckRequested,
		SubType: message.SubType,
		Payload: message.Payload,
	}
}

// NodeAnnouncement describes a node and the sensors it presented.
type NodeAnnouncement struct {
	ID      int                  `json:"id"`
	Alias   string               `json:"alias,omitempty"`
	Name    string               `json:"name,omitempty"`
	Version string               `json:"version,omitempty"`
	Sensors []SensorAnnouncement `json:"sensors,omitempty"`
}

type SensorAnnouncement struct {
	ID      int    `json:"id"`
	Type    int    `json:"type"`
	Version string `json:"version,omitempty"`
}

func NewNodeAnnouncement(node entities.Node) NodeAnnouncement {
	announcement := NodeAnnouncement{
		ID:      node.ID,
		Alias:   node.Alias,
		Name:    node.Name,
		Version: node.Version,
	}
	for _, sensor := range node.Sensors {
		announcement.Sensors = append(announcement.Sensors, SensorAnnouncement{
			ID:      sensor.ID,
			Type:    sensor.Type,
			Version: sensor.Version,
		})
	}
	return announcement
}

// SendMessageRequest is the command body accepted under the
// gateway.send binding key.
type SendMessageRequest struct {
	NodeID  int    `json:"nodeId"`
	ChildID int    `json:"childId"`
	Class   int    `json:"class"`
	Ack     bool   `json:"ack,omitempty"`
	SubType int    `json:"subType"`
	Payload string `json:"payload,omitempty"`
}
