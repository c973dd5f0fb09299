// Package resolver implements spec.md §4.7: mapping an incoming query
// id to a concrete storage backend and key via an ordered list of
// regex-based rules, each guarded by an allow-list over reference
// names, intervals, formats, classes, fields, and tags.
package resolver

import (
	"context"
	"regexp"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
	"github.com/ga4gh/htsget-gateway/internal/query"
	"github.com/ga4gh/htsget-gateway/internal/storage"
)

// AllowGuard restricts which queries a rule admits. A nil/zero-value
// field means "no restriction" for that dimension.
type AllowGuard struct {
	ReferenceNames []string
	Interval       byterange.Interval
	Formats        []query.Format
	Classes        []query.Class
	Fields         []string
	Tags           []string
}

// Admits reports whether q satisfies every configured restriction.
func (g AllowGuard) Admits(q *query.Query) bool {
	if len(g.Formats) > 0 && !containsFormat(g.Formats, q.Format) {
		return false
	}
	if len(g.Classes) > 0 && !containsClass(g.Classes, q.Class) {
		return false
	}
	if len(g.ReferenceNames) > 0 && q.ReferenceName != nil && !containsString(g.ReferenceNames, *q.ReferenceName) {
		return false
	}
	if len(g.Fields) > 0 && !subsetOf(q.Fields, g.Fields) {
		return false
	}
	if len(g.Tags) > 0 && !subsetOf(q.Tags, g.Tags) {
		return false
	}

	start := q.Interval.StartOr(0)
	end := q.Interval.EndOr(^uint32(0))
	if !g.Interval.Contains(start) || !g.Interval.Contains(end) {
		return false
	}
	return true
}

func containsFormat(list []query.Format, f query.Format) bool {
	for _, v := range list {
		if v == f {
			return true
		}
	}
	return false
}

func containsClass(list []query.Class, c query.Class) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func subsetOf(requested, allowed []string) bool {
	for _, r := range requested {
		if !containsString(allowed, r) {
			return false
		}
	}
	return true
}

// Rule is one entry of the resolver's ordered rule list.
type Rule struct {
	Regex        *regexp.Regexp
	Substitution string
	Storage      storage.Storage
	AllowGuard   AllowGuard
}

// resolvedID applies the rule's backreference-enabled substitution to
// an id that matched Regex.
func (r Rule) resolvedID(id string) string {
	return string(r.Regex.ReplaceAll([]byte(id), []byte(r.Substitution)))
}

// Resolver holds the ordered list of rules loaded from configuration.
type Resolver struct {
	Rules []Rule
}

// New builds a Resolver from an ordered rule list.
func New(rules []Rule) *Resolver {
	return &Resolver{Rules: rules}
}

// ResolveID implements spec.md §4.7's resolve_id: the first rule whose
// regex matches query.ID and whose allow-guard admits the query wins,
// and its substituted id is returned.
func (rv *Resolver) ResolveID(q *query.Query) (string, *Rule, error) {
	for i := range rv.Rules {
		rule := &rv.Rules[i]
		if !rule.Regex.MatchString(q.ID) {
			continue
		}
		if !rule.AllowGuard.Admits(q) {
			continue
		}
		return rule.resolvedID(q.ID), rule, nil
	}
	return "", nil, htserr.New(htserr.NotFound, "no resolver rule matches id %q", q.ID)
}

// ResolveRequest implements spec.md §4.7's resolve_request: resolve the
// id, rewrite it onto the query, and return the matched rule's storage
// together with the resolved key so the caller can run the search
// pipeline against it.
func (rv *Resolver) ResolveRequest(ctx context.Context, q *query.Query) (storage.Storage, string, error) {
	resolvedID, rule, err := rv.ResolveID(q)
	if err != nil {
		return nil, "", err
	}
	q.SetID(resolvedID)
	return rule.Storage, resolvedID, nil
}
