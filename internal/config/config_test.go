package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWhenPathIsEmpty(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TicketServer.Addr != ":8080" {
		t.Fatalf("TicketServer.Addr = %q, want :8080", cfg.TicketServer.Addr)
	}
	if cfg.DataServer.Addr != ":8081" || cfg.DataServer.ServeAt != "/data" {
		t.Fatalf("DataServer = %+v, want defaults", cfg.DataServer)
	}
}

func TestLoadParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
ticket_server:
  addr: ":9090"
locations:
  - name: local
    backend: file
    prefix: /data/genomics
resolvers:
  - regex: "^(.*)$"
    substitution_string: "$1.bam"
    storage: local
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TicketServer.Addr != ":9090" {
		t.Fatalf("TicketServer.Addr = %q, want :9090", cfg.TicketServer.Addr)
	}
	if len(cfg.Locations) != 1 || cfg.Locations[0].Name != "local" {
		t.Fatalf("Locations = %+v", cfg.Locations)
	}
	if len(cfg.Resolvers) != 1 || cfg.Resolvers[0].Storage != "local" {
		t.Fatalf("Resolvers = %+v", cfg.Resolvers)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestApplyEnvOverridesTicketServerAddr(t *testing.T) {
	t.Setenv("HTSGET_TICKET_SERVER_ADDR", ":7000")
	t.Setenv("HTSGET_DATA_SERVER_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TicketServer.Addr != ":7000" {
		t.Fatalf("TicketServer.Addr = %q, want :7000", cfg.TicketServer.Addr)
	}
	if !cfg.DataServer.Enabled {
		t.Fatal("expected DataServer.Enabled = true from env override")
	}
}

func TestParseLocationShorthandFile(t *testing.T) {
	loc, err := ParseLocationShorthand("file:///data/genomics")
	if err != nil {
		t.Fatalf("ParseLocationShorthand: %v", err)
	}
	if loc.Backend != "file" || loc.Prefix != "/data/genomics" {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestParseLocationShorthandS3(t *testing.T) {
	loc, err := ParseLocationShorthand("s3://my-bucket/prefix/path")
	if err != nil {
		t.Fatalf("ParseLocationShorthand: %v", err)
	}
	if loc.Backend != "s3" || loc.Bucket != "my-bucket" || loc.Prefix != "prefix/path" {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestParseLocationShorthandHTTPS(t *testing.T) {
	loc, err := ParseLocationShorthand("https://example.org/prefix")
	if err != nil {
		t.Fatalf("ParseLocationShorthand: %v", err)
	}
	if loc.Backend != "https" || loc.ResponseURL != "https://example.org/prefix" {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestParseLocationShorthandUnrecognizedErrors(t *testing.T) {
	if _, err := ParseLocationShorthand("ftp://example.org/prefix"); err == nil {
		t.Fatal("expected an error for an unrecognized shorthand scheme")
	}
}

func TestBuildIndexCacheDisabledReturnsNil(t *testing.T) {
	store, err := BuildIndexCache(context.Background(), IndexCacheConfig{})
	if err != nil {
		t.Fatalf("BuildIndexCache: %v", err)
	}
	if store != nil {
		t.Fatalf("expected a nil store for the disabled backend, got %T", store)
	}
}

func TestBuildIndexCacheFileBackendInitializesRoot(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "index-cache")

	store, err := BuildIndexCache(context.Background(), IndexCacheConfig{Backend: "file", Path: cachePath})
	if err != nil {
		t.Fatalf("BuildIndexCache: %v", err)
	}
	if store == nil {
		t.Fatal("expected a non-nil store")
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("expected Init to create %s: %v", cachePath, err)
	}
}

func TestBuildIndexCacheUnknownBackendErrors(t *testing.T) {
	if _, err := BuildIndexCache(context.Background(), IndexCacheConfig{Backend: "memcached"}); err == nil {
		t.Fatal("expected an error for an unknown index cache backend")
	}
}

func TestBuildResolverCompilesRulesOverFileBackend(t *testing.T) {
	cfg := Config{
		Locations: []LocationConfig{
			{Name: "local", Backend: "file", Prefix: t.TempDir()},
		},
		Resolvers: []ResolverRuleConfig{
			{Regex: "^(.*)$", Substitution: "$1.bam", Storage: "local"},
		},
	}

	resolv, err := BuildResolver(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("BuildResolver: %v", err)
	}
	if resolv == nil {
		t.Fatal("expected a non-nil resolver")
	}
}

func TestBuildResolverUnknownStorageReferenceErrors(t *testing.T) {
	cfg := Config{
		Resolvers: []ResolverRuleConfig{
			{Regex: "^(.*)$", Substitution: "$1.bam", Storage: "missing"},
		},
	}
	if _, err := BuildResolver(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected an error for a resolver rule referencing an unknown storage")
	}
}

func TestBuildResolverInvalidRegexErrors(t *testing.T) {
	cfg := Config{
		Locations: []LocationConfig{{Name: "local", Backend: "file", Prefix: t.TempDir()}},
		Resolvers: []ResolverRuleConfig{
			{Regex: "(unclosed", Storage: "local"},
		},
	}
	if _, err := BuildResolver(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected an error for an invalid regex")
	}
}
