// Package loadbalance provides strategies for spreading client calls across
// discovered server instances.
//
// Three strategies are implemented:
//   - RoundRobin:      stateless services, equal-capacity instances
//   - WeightedRandom:  heterogeneous instances (different CPU/memory)
//   - ConsistentHash:  affinity by key (e.g. route), stateful backends
package loadbalance

import "mini-twirp/discovery"

// Balancer selects a target instance before each call.
// Pick is called on every RPC and must be goroutine-safe.
type Balancer interface {
	Pick(instances []discovery.Instance) (*discovery.Instance, error)

	// Name returns the strategy name, for logging.
	Name() string
}
