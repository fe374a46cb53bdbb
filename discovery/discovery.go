// Package discovery resolves a Twirp service name to the base URLs of the
// server instances currently able to serve it. The protocol engine does not
// require discovery — a client bound to a fixed base URL never touches this
// package — but multi-instance deployments use it for client-side resolution.
package discovery

// Instance is one reachable server for a service.
type Instance struct {
	BaseURL string `json:"base_url"` // e.g. "http://10.0.0.7:8080"
	Weight  int    `json:"weight"`   // for weighted balancing
	Version string `json:"version"`
}

// Resolver registers and discovers service instances.
type Resolver interface {
	// Register announces an instance with a TTL in seconds. The resolver
	// keeps the registration alive until Deregister or process death.
	Register(service string, inst Instance, ttl int64) error

	// Deregister removes an instance, called during graceful shutdown.
	Deregister(service string, baseURL string) error

	// Discover returns all live instances for a service.
	Discover(service string) ([]Instance, error)

	// Watch emits the updated instance list whenever it changes.
	Watch(service string) <-chan []Instance
}
