package client

import (
	"context"

	"mini-twirp/message"
	"mini-twirp/registry"
)

// Stub binds one method's route and response type to a client. Generated
// code holds one Stub per RPC method; Call is the whole runtime contract of
// a generated method.
type Stub struct {
	client      *Client
	route       string
	newResponse func() message.Message
}

// Stub binds a route and a response factory to this client.
func (c *Client) Stub(route string, newResponse func() message.Message) *Stub {
	return &Stub{client: c, route: route, newResponse: newResponse}
}

// StubFor binds a method of a registered service definition to this client.
func (c *Client) StubFor(def *registry.ServiceDefinition, method string) (*Stub, bool) {
	for _, m := range def.Methods {
		if m.Name == method {
			return &Stub{
				client:      c,
				route:       registry.Route(def.Package, def.Service, m.Name),
				newResponse: m.NewResponse,
			}, true
		}
	}
	return nil, false
}

// Call performs the bound RPC and returns the decoded response.
func (s *Stub) Call(ctx context.Context, req message.Message) (message.Message, error) {
	resp := s.newResponse()
	if err := s.client.Call(ctx, s.route, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
