package mysensors

import (
	"fmt"
	"sync"

	bloomFilter "github.com/bits-and-blooms/bloom/v3"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
)

// duplicationFilter suppresses repeated sensor readings so the broker
// surfaces are not flooded by nodes that resend unchanged values. One
// bloom filter is kept per node.
type duplicationFilter struct {
	mutex                        sync.RWMutex
	filters                      map[uint8]*bloomFilter.BloomFilter
	filterCapacity               uint
	duplicationProbability       float64
	maximumPercentageFilterUsage float32
}

func newDuplicationFilter(filterCapacity uint, duplicationProbability float64, maximumPercentageFilterUsage float32) *duplicationFilter {
	return &duplicationFilter{
		filters:                      make(map[uint8]*bloomFilter.BloomFilter),
		filterCapacity:               filterCapacity,
		duplicationProbability:       duplicationProbability,
		maximumPercentageFilterUsage: maximumPercentageFilterUsage,
	}
}

func (d *duplicationFilter) isDuplicated(message entities.Message) bool {
	d.mutex.RLock()
	filter, tracked := d.filters[message.NodeID]
	d.mutex.RUnlock()
	if !tracked {
		return false
	}
	return filter.Test(measurementKey(message))
}

func (d *duplicationFilter) remember(message entities.Message) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	filter, tracked := d.filters[message.NodeID]
	if !tracked {
		filter = bloomFilter.NewWithEstimates(d.filterCapacity, d.duplicationProbability)
		d.filters[message.NodeID] = filter
	}
	d.resetWhenSaturated(filter)
	filter.Add(measurementKey(message))
}

// resetWhenSaturated clears the filter once its estimated usage
// reaches the configured fraction of its capacity, otherwise every
// reading eventually looks duplicated.
func (d *duplicationFilter) resetWhenSaturated(filter *bloomFilter.BloomFilter) {
	currentFilterUsage := float32(filter.ApproximatedSize()) / float32(filter.Cap())
	if currentFilterUsage >= d.maximumPercentageFilterUsage {
		filter.ClearAll()
	}
}

func measurementKey(message entities.Message) []byte {
	return []byte(fmt.Sprintf("%d_%d_%s", message.ChildID, message.SubType, message.Payload))
}
