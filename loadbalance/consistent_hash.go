package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"

	"mini-twirp/discovery"
)

// ConsistentHashBalancer maps keys to instances on a hash ring, so the same
// key keeps hitting the same instance until the ring changes. Useful when
// backends hold per-key state or caches.
//
// Each real instance is placed on the ring as N virtual nodes; without them a
// few instances would cluster and take uneven load. 100 virtual nodes per
// instance gives statistical uniformity.
type ConsistentHashBalancer struct {
	replicas int
	ring     []uint32 // sorted hash values
	nodes    map[uint32]*discovery.Instance
}

// NewConsistentHashBalancer creates a ring with 100 virtual nodes per instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		ring:     []uint32{},
		nodes:    make(map[uint32]*discovery.Instance),
	}
}

// Add places an instance onto the ring under "{baseURL}#{i}" virtual keys.
func (b *ConsistentHashBalancer) Add(inst *discovery.Instance) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", inst.BaseURL, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = inst
	}
	// Keep the ring sorted for binary search in PickKey.
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// PickKey finds the instance responsible for a key: hash it, then take the
// first node clockwise on the ring, wrapping past zero.
//
// Consistent hashing is key-based, so this type does not implement Balancer;
// callers that want affinity use PickKey with a stable key such as the route.
func (b *ConsistentHashBalancer) PickKey(key string) (*discovery.Instance, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("no instances on the ring")
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
