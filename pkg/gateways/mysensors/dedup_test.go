package mysensors

import (
	"fmt"
	"testing"

	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type duplicationFilterSuite struct {
	suite.Suite
	filter  *duplicationFilter
	reading entities.Message
}

func (dedup *duplicationFilterSuite) SetupTest() {
	dedup.filter = newDuplicationFilter(1000000, 0.01, 0.75)
	dedup.reading = entities.Message{NodeID: 7, ChildID: 1, Class: entities.ClassSet, SubType: int(entities.VTemp), Payload: "21.5"}
}

func (dedup *duplicationFilterSuite) TestGivenNewReadingThenNotDuplicated() {
	assert.False(dedup.T(), dedup.filter.isDuplicated(dedup.reading))
}

func (dedup *duplicationFilterSuite) TestGivenRememberedReadingThenDuplicated() {
	dedup.filter.remember(dedup.reading)
	assert.True(dedup.T(), dedup.filter.isDuplicated(dedup.reading))
}

func (dedup *duplicationFilterSuite) TestGivenChangedPayloadThenNotDuplicated() {
	dedup.filter.remember(dedup.reading)
	assert.False(dedup.T(), dedup.filter.isDuplicated(dedup.reading.WithPayload("22.0")))
}

func (dedup *duplicationFilterSuite) TestGivenSameReadingFromAnotherNodeThenNotDuplicated() {
	dedup.filter.remember(dedup.reading)
	other := dedup.reading
	other.NodeID = 8
	assert.False(dedup.T(), dedup.filter.isDuplicated(other))
}

func (dedup *duplicationFilterSuite) TestGivenSameReadingFromAnotherChildThenNotDuplicated() {
	dedup.filter.remember(dedup.reading)
	other := dedup.reading
	other.ChildID = 2
	assert.False(dedup.T(), dedup.filter.isDuplicated(other))
}

func (dedup *duplicationFilterSuite) TestGivenSaturatedFilterThenItIsReset() {
	dedup.filter = newDuplicationFilter(10000, 0.01, 0.75)
	dedup.filter.remember(dedup.reading)
	filter := dedup.filter.filters[dedup.reading.NodeID]
	maximumAllowedFilterSize := float32(filter.Cap()) * 0.80
	for i := 0; i < int(maximumAllowedFilterSize); i++ {
		filter.Add([]byte(fmt.Sprintf("%d", i)))
	}
	assert.NotEqual(dedup.T(), 0, int(filter.ApproximatedSize()))

	dedup.filter.resetWhenSaturated(filter)

	assert.Equal(dedup.T(), 0, int(filter.ApproximatedSize()))
}

func TestDuplicationFilterSuite(t *testing.T) {
	suite.Run(t, new(duplicationFilterSuite))
}
