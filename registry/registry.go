// Package registry binds package/service names to named RPC methods and
// resolves inbound paths to handlers by exact string match on precomputed
// routes.
//
// Registration happens once at process start. A mutex guards the route table,
// so the registry is safe for concurrent use; lookups never mutate it.
package registry

import (
	"context"
	"fmt"
	"sync"

	"mini-twirp/message"
)

// Handler is the business-logic function implementing one RPC method.
// It returns either a response message or an error; returning a *twerr.Error
// controls the code written to the wire, any other error is carried as
// internal, and a panic is converted to internal at the dispatch boundary.
type Handler func(ctx context.Context, req message.Message) (message.Message, error)

// MethodDefinition declares one RPC method of a service.
type MethodDefinition struct {
	Name        string
	NewRequest  func() message.Message // fresh request instance per call
	NewResponse func() message.Message // fresh response instance (client side)
	Handler     Handler
}

// ServiceDefinition is the immutable result of registering a service.
type ServiceDefinition struct {
	Package string
	Service string
	Methods []*MethodDefinition
}

// Name returns the fully-qualified service name ("pkg.Service", or just
// "Service" when the package is empty).
func (s *ServiceDefinition) Name() string {
	if s.Package == "" {
		return s.Service
	}
	return s.Package + "." + s.Service
}

// Route computes the fixed URL path for one method:
// /{package}.{service}/{method}, with the package segment (and its dot)
// omitted when the package is empty. Routes are computed once at
// registration, never per request.
func Route(pkg, service, method string) string {
	if pkg == "" {
		return "/" + service + "/" + method
	}
	return "/" + pkg + "." + service + "/" + method
}

// Endpoint is a resolved route: the method plus its owning service.
type Endpoint struct {
	Service *ServiceDefinition
	Method  *MethodDefinition
	Route   string
}

// Registry maps route strings to endpoints.
type Registry struct {
	mu     sync.Mutex
	routes map[string]*Endpoint
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{routes: make(map[string]*Endpoint)}
}

// Register binds a service's methods into the route table. Duplicate method
// names within the service and any full-path collision with a previously
// registered service are configuration errors: they fail here, at startup,
// never at request time.
func (r *Registry) Register(pkg, service string, methods []*MethodDefinition) (*ServiceDefinition, error) {
	if service == "" {
		return nil, fmt.Errorf("registry: service name must not be empty")
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("registry: service %q has no methods", service)
	}
	def := &ServiceDefinition{Package: pkg, Service: service, Methods: methods}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate every method and reserve every route before touching the
	// table, so a failed registration never leaves partial routes behind.
	routes := make([]string, 0, len(methods))
	seen := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		if m.Name == "" {
			return nil, fmt.Errorf("registry: service %q has a method with an empty name", def.Name())
		}
		if m.NewRequest == nil || m.Handler == nil {
			return nil, fmt.Errorf("registry: method %q of service %q is missing a request factory or handler", m.Name, def.Name())
		}
		route := Route(pkg, service, m.Name)
		if _, dup := seen[route]; dup {
			return nil, fmt.Errorf("registry: route %q is already registered", route)
		}
		if _, exists := r.routes[route]; exists {
			return nil, fmt.Errorf("registry: route %q is already registered", route)
		}
		seen[route] = struct{}{}
		routes = append(routes, route)
	}
	for i, m := range methods {
		r.routes[routes[i]] = &Endpoint{Service: def, Method: m, Route: routes[i]}
	}
	return def, nil
}

// MustRegister is Register for process-start wiring: it panics on error.
func (r *Registry) MustRegister(pkg, service string, methods []*MethodDefinition) *ServiceDefinition {
	def, err := r.Register(pkg, service, methods)
	if err != nil {
		panic(err)
	}
	return def
}

// Lookup resolves a request path to an endpoint by exact, case-sensitive
// string comparison. No pattern matching.
func (r *Registry) Lookup(path string) (*Endpoint, bool) {
	r.mu.Lock()
	ep, ok := r.routes[path]
	r.mu.Unlock()
	return ep, ok
}

// Routes returns all registered route strings, for startup logging.
func (r *Registry) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.routes))
	for route := range r.routes {
		out = append(out, route)
	}
	return out
}
