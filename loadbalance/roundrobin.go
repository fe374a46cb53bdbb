package loadbalance

import (
	"fmt"
	"sync/atomic"

	"mini-twirp/discovery"
)

// RoundRobinBalancer distributes calls evenly across instances in order,
// using an atomic counter for lock-free goroutine safety.
type RoundRobinBalancer struct {
	counter int64
}

func (b *RoundRobinBalancer) Pick(instances []discovery.Instance) (*discovery.Instance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
