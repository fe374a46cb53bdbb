package loadbalance

import (
	"fmt"
	"math/rand"

	"mini-twirp/discovery"
)

// WeightedRandomBalancer picks instances with probability proportional to
// their registered weight. Instances with weight <= 0 are never picked.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(instances []discovery.Instance) (*discovery.Instance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances available")
	}

	totalWeight := 0
	for _, inst := range instances {
		if inst.Weight > 0 {
			totalWeight += inst.Weight
		}
	}
	if totalWeight == 0 {
		return nil, fmt.Errorf("no instances with positive weight")
	}

	r := rand.Intn(totalWeight)
	for i := range instances {
		if instances[i].Weight <= 0 {
			continue
		}
		r -= instances[i].Weight
		if r < 0 {
			return &instances[i], nil
		}
	}

	return nil, fmt.Errorf("unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
