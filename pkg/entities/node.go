package entities

import "fmt"

// Sensor is one child of a node, announced by a presentation message.
type Sensor struct {
	ID      int    `yaml:"id"`
	Type    int    `yaml:"type"`
	Version string `yaml:"version,omitempty"`
}

// Node is one radio node together with the sensors it presented.
type Node struct {
	ID      int      `yaml:"id"`
	Alias   string   `yaml:"alias,omitempty"`
	Name    string   `yaml:"name,omitempty"`
	Version string   `yaml:"version,omitempty"`
	Sensors []Sensor `yaml:"sensors,omitempty"`
}

// NodeRegistry is the persisted form of everything known about the
// radio network.
type NodeRegistry struct {
	Nodes []Node `yaml:"nodes"`
}

// Sensor returns the child with the given id, if the node presented it.
func (n Node) Sensor(id int) (Sensor, bool) {
	for _, sensor := range n.Sensors {
		if sensor.ID == id {
			return sensor, true
		}
	}
	return Sensor{}, false
}

// UpsertSensor replaces the sensor with the same id or appends it.
func (n *Node) UpsertSensor(sensor Sensor) {
	for i := range n.Sensors {
		if n.Sensors[i].ID == sensor.ID {
			n.Sensors[i] = sensor
			return
		}
	}
	n.Sensors = append(n.Sensors, sensor)
}

// Copy returns a deep copy, safe to hand to other goroutines.
func (n Node) Copy() Node {
	clone := n
	if n.Sensors != nil {
		clone.Sensors = make([]Sensor, len(n.Sensors))
		copy(clone.Sensors, n.Sensors)
	}
	return clone
}

// DisplayName is the host-facing name of the node.
func (n Node) DisplayName() string {
	if n.Alias != "" {
		return n.Alias
	}
	return fmt.Sprintf("MySensor %d", n.ID)
}
