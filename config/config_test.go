package config

import (
	"testing"
	"time"

	"mini-twirp/message"
)

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
[server]
addr = ":9000"
strict_decoding = true
handler_timeout = "2s"

[server.rate_limit]
rps = 100.0
burst = 20

[client]
base_url = "http://127.0.0.1:9000"
format = "json"
max_retries = 3
retry_base = "250ms"

[etcd]
endpoints = ["127.0.0.1:2379"]

[log]
level = "debug"
development = true
`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9000" || !cfg.Server.StrictDecoding {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.HandlerTimeout.Std() != 2*time.Second {
		t.Fatalf("expect 2s timeout, got %v", cfg.Server.HandlerTimeout.Std())
	}
	if cfg.Server.RateLimit.RPS != 100.0 || cfg.Server.RateLimit.Burst != 20 {
		t.Fatalf("unexpected rate limit %+v", cfg.Server.RateLimit)
	}
	if cfg.Client.Format != "json" || cfg.Client.MaxRetries != 3 {
		t.Fatalf("unexpected client config %+v", cfg.Client)
	}
	if cfg.Client.RetryBase.Std() != 250*time.Millisecond {
		t.Fatalf("expect 250ms retry base, got %v", cfg.Client.RetryBase.Std())
	}
	if len(cfg.Etcd.Endpoints) != 1 {
		t.Fatalf("unexpected etcd config %+v", cfg.Etcd)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte(``))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expect default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Client.Format != "binary" {
		t.Fatalf("expect default binary format, got %q", cfg.Client.Format)
	}
	if cfg.Client.RetryBase.Std() != 100*time.Millisecond {
		t.Fatalf("expect default retry base, got %v", cfg.Client.RetryBase.Std())
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expect default log level, got %q", cfg.Log.Level)
	}
}

func TestValidation(t *testing.T) {
	bad := []string{
		"[client]\nformat = \"xml\"\n",
		"[client]\nmax_retries = -1\n",
		"[server.rate_limit]\nrps = -5.0\n",
		"[server.rate_limit]\nrps = 10.0\nburst = 0\n",
		"[client]\nservice = \"acme.Echo\"\n", // discovery without etcd endpoints
		"[log]\nlevel = \"loud\"\n",
	}
	for _, src := range bad {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("expect validation error for:\n%s", src)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("binary"); err != nil || f != message.Binary {
		t.Fatalf("binary: got %v %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != message.JSON {
		t.Fatalf("json: got %v %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatal("expect error for unknown format")
	}
}

func TestServerOptionsBuild(t *testing.T) {
	cfg, err := Parse([]byte("[server]\nhandler_timeout = \"1s\"\n\n[server.rate_limit]\nrps = 5.0\nburst = 5\n"))
	if err != nil {
		t.Fatal(err)
	}
	log, err := NewLogger(cfg.Log)
	if err != nil {
		t.Fatal(err)
	}
	opts := ServerOptions(cfg.Server, log)
	if len(opts) == 0 {
		t.Fatal("expect server options")
	}

	clientOpts, err := ClientOptions(cfg.Client, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(clientOpts) == 0 {
		t.Fatal("expect client options")
	}
}
