package discovery

import (
	"fmt"
	"sync"
)

// StaticResolver serves a fixed, in-memory instance list. Useful for tests
// and single-host deployments that still want the resolver/balancer plumbing.
type StaticResolver struct {
	mu        sync.Mutex
	instances map[string][]Instance
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{instances: make(map[string][]Instance)}
}

func (r *StaticResolver) Register(service string, inst Instance, ttl int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[service] = append(r.instances[service], inst)
	return nil
}

func (r *StaticResolver) Deregister(service string, baseURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	insts := r.instances[service]
	for i, inst := range insts {
		if inst.BaseURL == baseURL {
			r.instances[service] = append(insts[:i], insts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("instance %q not registered for service %q", baseURL, service)
}

func (r *StaticResolver) Discover(service string) ([]Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Instance, len(r.instances[service]))
	copy(out, r.instances[service])
	return out, nil
}

// Watch on a static resolver never fires; the list does not change on its own.
func (r *StaticResolver) Watch(service string) <-chan []Instance {
	return make(chan []Instance)
}
