package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGivenPresentedSensorThenSensorReturnsIt(t *testing.T) {
	node := Node{ID: 3, Sensors: []Sensor{{ID: 1, Type: int(STemp)}}}

	sensor, found := node.Sensor(1)

	assert.True(t, found)
	assert.Equal(t, int(STemp), sensor.Type)
}

func TestGivenUnknownSensorThenSensorReturnsFalse(t *testing.T) {
	node := Node{ID: 3}

	_, found := node.Sensor(1)

	assert.False(t, found)
}

func TestGivenNewSensorThenUpsertAppends(t *testing.T) {
	node := Node{ID: 3}

	node.UpsertSensor(Sensor{ID: 1, Type: int(SMotion)})

	assert.Len(t, node.Sensors, 1)
}

func TestGivenExistingSensorThenUpsertReplaces(t *testing.T) {
	node := Node{ID: 3, Sensors: []Sensor{{ID: 1, Type: int(SMotion)}}}

	node.UpsertSensor(Sensor{ID: 1, Type: int(SDoor), Version: "1.4"})

	assert.Len(t, node.Sensors, 1)
	assert.Equal(t, int(SDoor), node.Sensors[0].Type)
	assert.Equal(t, "1.4", node.Sensors[0].Version)
}

func TestGivenCopyThenMutationsDoNotLeakBack(t *testing.T) {
	node := Node{ID: 3, Sensors: []Sensor{{ID: 1, Type: int(SMotion)}}}

	clone := node.Copy()
	clone.Sensors[0].Type = int(SDoor)

	assert.Equal(t, int(SMotion), node.Sensors[0].Type)
}

func TestGivenAliasThenDisplayNameUsesIt(t *testing.T) {
	node := Node{ID: 3, Alias: "Porch"}

	assert.Equal(t, "Porch", node.DisplayName())
}

func TestGivenNoAliasThenDisplayNameUsesID(t *testing.T) {
	node := Node{ID: 3}

	assert.Equal(t, "MySensor 3", node.DisplayName())
}
