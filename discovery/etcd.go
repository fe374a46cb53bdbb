// etcd-backed Resolver.
//
// Instances live under:
//
//	Key:   /twirp/{service}/{baseURL}
//	Value: JSON-encoded Instance
//
// Registration uses TTL leases with background KeepAlive: a crashed server
// stops renewing and its entry expires, so clients never discover a ghost
// instance.
package discovery

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const etcdPrefix = "/twirp/"

// EtcdResolver implements Resolver on etcd v3.
type EtcdResolver struct {
	client *clientv3.Client // thread-safe, shared across goroutines
}

// NewEtcdResolver connects to the given etcd endpoints. The cluster is
// probed once so an unreachable etcd fails here, at startup, rather than on
// the first Register.
func NewEtcdResolver(endpoints []string) (*EtcdResolver, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := c.Get(ctx, etcdPrefix, clientv3.WithCountOnly()); err != nil {
		c.Close()
		return nil, err
	}
	return &EtcdResolver{client: c}, nil
}

// Register writes the instance under a TTL lease and starts KeepAlive.
// The lease ID stays a local variable: storing it on the struct races when
// several servers share one resolver.
func (r *EtcdResolver) Register(service string, inst Instance, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, etcdPrefix+service+"/"+inst.BaseURL, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes one instance entry.
func (r *EtcdResolver) Deregister(service string, baseURL string) error {
	_, err := r.client.Delete(context.TODO(), etcdPrefix+service+"/"+baseURL)
	return err
}

// Discover lists all live instances under the service prefix.
func (r *EtcdResolver) Discover(service string) ([]Instance, error) {
	resp, err := r.client.Get(context.TODO(), etcdPrefix+service+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			continue // skip malformed entries
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Watch re-lists the service on every change under its prefix. Server-push
// from etcd, no polling.
func (r *EtcdResolver) Watch(service string) <-chan []Instance {
	ch := make(chan []Instance, 1)
	go func() {
		watchChan := r.client.Watch(context.TODO(), etcdPrefix+service+"/", clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(service)
			if err != nil {
				continue
			}
			ch <- instances
		}
	}()
	return ch
}
