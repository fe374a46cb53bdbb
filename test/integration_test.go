package test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"mini-twirp/client"
	"mini-twirp/config"
	"mini-twirp/discovery"
	"mini-twirp/loadbalance"
	"mini-twirp/message"
	"mini-twirp/middleware"
	"mini-twirp/registry"
	"mini-twirp/server"
	"mini-twirp/twerr"
)

// ---- test service: a hand-rolled JSON-only message plus handlers ----

type hatReq struct {
	Inches int `json:"inches"`
}

type hatResp struct {
	Size  int    `json:"size"`
	Color string `json:"color"`
}

func (m *hatReq) MarshalFormat(f message.Format) ([]byte, error) { return json.Marshal(m) }
func (m *hatReq) UnmarshalFormat(f message.Format, data []byte, opts message.DecodeOptions) error {
	return json.Unmarshal(data, m)
}
func (m *hatResp) MarshalFormat(f message.Format) ([]byte, error) { return json.Marshal(m) }
func (m *hatResp) UnmarshalFormat(f message.Format, data []byte, opts message.DecodeOptions) error {
	return json.Unmarshal(data, m)
}

func makeHat(ctx context.Context, req message.Message) (message.Message, error) {
	r := req.(*hatReq)
	if r.Inches <= 0 {
		return nil, twerr.New(twerr.InvalidArgument, "inches must be positive").WithMeta("argument", "inches")
	}
	return &hatResp{Size: r.Inches, Color: "brown"}, nil
}

func newHaberdasher() *registry.Registry {
	reg := registry.New()
	reg.MustRegister("acme.v1", "Haberdasher", []*registry.MethodDefinition{{
		Name:        "MakeHat",
		NewRequest:  func() message.Message { return &hatReq{} },
		NewResponse: func() message.Message { return &hatResp{} },
		Handler:     makeHat,
	}})
	return reg
}

// Full chain: client → HTTP → dispatcher → middleware → handler → back.
func TestFullCall(t *testing.T) {
	srv := server.New(newHaberdasher(),
		server.WithMiddleware(
			middleware.Logging(zap.NewNop()),
			middleware.Timeout(time.Second),
		))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := client.New(ts.URL, client.WithFormat(message.JSON))

	resp := &hatResp{}
	err := c.Call(context.Background(), "/acme.v1.Haberdasher/MakeHat", &hatReq{Inches: 12}, resp)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Size != 12 || resp.Color != "brown" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestFullCallApplicationError(t *testing.T) {
	ts := httptest.NewServer(server.New(newHaberdasher()))
	defer ts.Close()

	c := client.New(ts.URL, client.WithFormat(message.JSON))
	err := c.Call(context.Background(), "/acme.v1.Haberdasher/MakeHat", &hatReq{Inches: -1}, &hatResp{})
	te := twerr.FromError(err)
	if te.Code() != twerr.InvalidArgument {
		t.Fatalf("expect invalid_argument, got %v", err)
	}
	if te.Meta("argument") != "inches" {
		t.Fatal("meta should cross the wire intact")
	}
}

// Proto-generated messages over both wire formats, through the adapter.
func TestProtoServiceBothFormats(t *testing.T) {
	reg := registry.New()
	reg.MustRegister("acme.v1", "Shout", []*registry.MethodDefinition{{
		Name:        "Upper",
		NewRequest:  func() message.Message { return message.Proto(&wrapperspb.StringValue{}) },
		NewResponse: func() message.Message { return message.Proto(&wrapperspb.StringValue{}) },
		Handler: func(ctx context.Context, req message.Message) (message.Message, error) {
			in := req.(*message.ProtoAdapter).PB.(*wrapperspb.StringValue)
			return message.Proto(wrapperspb.String(strings.ToUpper(in.Value))), nil
		},
	}})
	ts := httptest.NewServer(server.New(reg))
	defer ts.Close()

	for _, f := range []message.Format{message.Binary, message.JSON} {
		c := client.New(ts.URL, client.WithFormat(f))
		stub := c.Stub("/acme.v1.Shout/Upper", func() message.Message {
			return message.Proto(&wrapperspb.StringValue{})
		})

		resp, err := stub.Call(context.Background(), message.Proto(wrapperspb.String("quiet")))
		if err != nil {
			t.Fatalf("%v: %v", f, err)
		}
		got := resp.(*message.ProtoAdapter).PB.(*wrapperspb.StringValue).Value
		if got != "QUIET" {
			t.Fatalf("%v: expect QUIET, got %q", f, got)
		}
	}
}

// Multi-instance: resolver + round robin spread calls across two servers.
func TestMultiInstanceRoundRobin(t *testing.T) {
	var hits [2]int
	servers := make([]*httptest.Server, 2)
	res := discovery.NewStaticResolver()

	for i := range servers {
		i := i
		reg := registry.New()
		reg.MustRegister("acme.v1", "Counter", []*registry.MethodDefinition{{
			Name:        "Hit",
			NewRequest:  func() message.Message { return &hatReq{} },
			NewResponse: func() message.Message { return &hatResp{} },
			Handler: func(ctx context.Context, req message.Message) (message.Message, error) {
				hits[i]++
				return &hatResp{Size: i}, nil
			},
		}})
		servers[i] = httptest.NewServer(server.New(reg))
		defer servers[i].Close()
		if err := res.Register("acme.v1.Counter", discovery.Instance{BaseURL: servers[i].URL, Weight: 1}, 0); err != nil {
			t.Fatal(err)
		}
	}

	c := client.New("",
		client.WithFormat(message.JSON),
		client.WithResolver(res, &loadbalance.RoundRobinBalancer{}, "acme.v1.Counter"))

	for i := 0; i < 10; i++ {
		if err := c.Call(context.Background(), "/acme.v1.Counter/Hit", &hatReq{Inches: 1}, &hatResp{}); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	if hits[0] != 5 || hits[1] != 5 {
		t.Fatalf("expect even spread, got %v", hits)
	}
}

// A server assembled from config, end to end.
func TestServerFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[server]
strict_decoding = true
handler_timeout = "1s"

[client]
format = "json"
max_retries = 2
retry_base = "10ms"
`))
	if err != nil {
		t.Fatal(err)
	}
	log := zap.NewNop()

	ts := httptest.NewServer(server.New(newHaberdasher(), config.ServerOptions(cfg.Server, log)...))
	defer ts.Close()

	clientOpts, err := config.ClientOptions(cfg.Client, log)
	if err != nil {
		t.Fatal(err)
	}
	c := client.New(ts.URL, clientOpts...)

	resp := &hatResp{}
	if err := c.Call(context.Background(), "/acme.v1.Haberdasher/MakeHat", &hatReq{Inches: 7}, resp); err != nil {
		t.Fatal(err)
	}
	if resp.Size != 7 {
		t.Fatalf("expect size 7, got %d", resp.Size)
	}
}

// Rate limited server surfaces resource_exhausted (HTTP 403) to the client.
func TestRateLimitEndToEnd(t *testing.T) {
	srv := server.New(newHaberdasher(),
		server.WithMiddleware(middleware.RateLimit(1, 1)))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := client.New(ts.URL, client.WithFormat(message.JSON))

	if err := c.Call(context.Background(), "/acme.v1.Haberdasher/MakeHat", &hatReq{Inches: 1}, &hatResp{}); err != nil {
		t.Fatal(err)
	}

	var limited bool
	for i := 0; i < 3; i++ {
		err := c.Call(context.Background(), "/acme.v1.Haberdasher/MakeHat", &hatReq{Inches: 1}, &hatResp{})
		if err != nil && twerr.FromError(err).Code() == twerr.ResourceExhausted {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expect at least one rate-limited call")
	}
}

// Sanity: route miss through the whole stack, matching the documented shape.
func TestBadRouteEndToEnd(t *testing.T) {
	ts := httptest.NewServer(server.New(newHaberdasher()))
	defer ts.Close()

	c := client.New(ts.URL, client.WithFormat(message.JSON))
	err := c.Call(context.Background(), "/foo.Bar/Baz", &hatReq{}, &hatResp{})
	te := twerr.FromError(err)
	if te.Code() != twerr.BadRoute {
		t.Fatalf("expect bad_route, got %v", err)
	}
	if !strings.Contains(te.Msg(), "/foo.Bar/Baz") {
		t.Fatalf("expect the path in the message, got %q", te.Msg())
	}
}
