package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/crypt4gh"
	"github.com/ga4gh/htsget-gateway/internal/indexcache"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/resolver"
	"github.com/ga4gh/htsget-gateway/internal/storage"
	"github.com/ga4gh/htsget-gateway/internal/storage/localstorage"
	"github.com/ga4gh/htsget-gateway/internal/storage/s3storage"
	"github.com/ga4gh/htsget-gateway/internal/storage/urlstorage"
)

// BuildStorage constructs the storage.Storage backend a LocationConfig
// describes, wrapping it with the Crypt4GH decorator when configured.
func BuildStorage(ctx context.Context, loc LocationConfig, httpClient *http.Client) (storage.Storage, error) {
	var (
		st  storage.Storage
		err error
	)
	switch loc.Backend {
	case "file":
		st, err = localstorage.New(loc.Prefix, "http", "localhost", loc.Prefix)
	case "s3":
		st, err = s3storage.New(ctx, loc.Bucket, loc.Prefix, loc.ForcePathStyle)
	case "https", "http":
		st, err = urlstorage.New(httpClient, loc.Prefix, loc.ResponseURL, loc.ForwardHeaders, nil), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", loc.Backend)
	}
	if err != nil {
		return nil, err
	}
	if !loc.Crypt4GH.Enabled {
		return st, nil
	}
	return wrapCrypt4GH(st, loc.Crypt4GH)
}

func wrapCrypt4GH(inner storage.Storage, cfg Crypt4GHConfig) (storage.Storage, error) {
	recipient, err := keyPairFromBase64(cfg.RecipientPrivateKey, cfg.RecipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding crypt4gh recipient keys: %w", err)
	}
	sender, err := keyPairFromBase64(cfg.SenderPrivateKey, cfg.SenderPublicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding crypt4gh sender keys: %w", err)
	}
	return crypt4gh.New(inner, recipient, sender), nil
}

func keyPairFromBase64(priv, pub string) (crypt4gh.KeyPair, error) {
	var kp crypt4gh.KeyPair
	privBytes, err := base64.StdEncoding.DecodeString(priv)
	if err != nil || len(privBytes) != 32 {
		return kp, fmt.Errorf("private key must be 32 bytes base64")
	}
	pubBytes, err := base64.StdEncoding.DecodeString(pub)
	if err != nil || len(pubBytes) != 32 {
		return kp, fmt.Errorf("public key must be 32 bytes base64")
	}
	copy(kp.PrivateKey[:], privBytes)
	copy(kp.PublicKey[:], pubBytes)
	return kp, nil
}

// BuildIndexCache constructs the configured companion-index cache, or
// nil if index caching is disabled (the zero value, Backend == "").
func BuildIndexCache(ctx context.Context, cfg IndexCacheConfig) (indexcache.Store, error) {
	var (
		store indexcache.Store
		err   error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "file":
		store = indexcache.NewFSStore(cfg.Path)
	case "s3":
		store, err = indexcache.NewS3Store(ctx, cfg.Bucket, cfg.Prefix, cfg.ForcePathStyle, cfg.LifecycleDays)
	default:
		return nil, fmt.Errorf("unknown index cache backend: %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing index cache: %w", err)
	}
	return store, nil
}

// BuildResolver compiles the configuration's locations and resolver
// rules into a ready-to-use resolver.Resolver, spec.md §4.7/§6.3.
func BuildResolver(ctx context.Context, cfg Config, httpClient *http.Client) (*resolver.Resolver, error) {
	backends := make(map[string]storage.Storage, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		st, err := BuildStorage(ctx, loc, httpClient)
		if err != nil {
			return nil, fmt.Errorf("building location %q: %w", loc.Name, err)
		}
		backends[loc.Name] = st
	}

	rules := make([]resolver.Rule, 0, len(cfg.Resolvers))
	for _, rc := range cfg.Resolvers {
		re, err := regexp.Compile(rc.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling resolver regex %q: %w", rc.Regex, err)
		}
		st, ok := backends[rc.Storage]
		if !ok {
			return nil, fmt.Errorf("resolver rule references unknown storage %q", rc.Storage)
		}
		rules = append(rules, resolver.Rule{
			Regex:        re,
			Substitution: rc.Substitution,
			Storage:      st,
			AllowGuard:   buildAllowGuard(rc.AllowGuard),
		})
	}

	return resolver.New(rules), nil
}

func buildAllowGuard(g AllowGuardConfig) resolver.AllowGuard {
	formats := make([]query.Format, 0, len(g.Formats))
	for _, f := range g.Formats {
		if parsed, ok := query.ParseFormat(f); ok {
			formats = append(formats, parsed)
		}
	}
	classes := make([]query.Class, 0, len(g.Classes))
	for _, c := range g.Classes {
		classes = append(classes, query.Class(c))
	}
	return resolver.AllowGuard{
		ReferenceNames: g.ReferenceNames,
		Interval:       byterange.NewInterval(g.Start, g.End),
		Formats:        formats,
		Classes:        classes,
		Fields:         g.Fields,
		Tags:           g.Tags,
	}
}
