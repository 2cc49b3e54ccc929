// Package fetch validates and performs outbound URL retrieval for
// programmatic ingestion.
//
// Policy checks run before any network syscall: scheme, host allow/deny
// lists, and DNS-to-IP classification all reject locally. The client then
// enforces redirect caps (re-validating every hop), connect/read timeouts,
// and a hard byte cap. Failures surface as fault codes from the closed set in
// internal/fault.
package fetch

import (
	"context"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/docflow-io/docflow/internal/fault"
)

// LookupIPFunc resolves a hostname. Injected in tests so policy decisions
// never touch the real resolver.
type LookupIPFunc func(ctx context.Context, host string) ([]net.IP, error)

// Policy holds the static URL admission rules.
type Policy struct {
	// AllowHosts, when non-empty, restricts targets to these domains
	// (exact or dot-suffix match). DenyHosts always wins.
	AllowHosts []string
	DenyHosts  []string

	lookup LookupIPFunc
}

// NewPolicy builds a Policy with the default resolver.
func NewPolicy(allow, deny []string) *Policy {
	return &Policy{
		AllowHosts: normalizeDomains(allow),
		DenyHosts:  normalizeDomains(deny),
		lookup:     defaultLookup,
	}
}

// NewPolicyWithLookup builds a Policy that resolves hosts through lookup
// instead of the default resolver.
func NewPolicyWithLookup(allow, deny []string, lookup LookupIPFunc) *Policy {
	p := NewPolicy(allow, deny)
	if lookup != nil {
		p.lookup = lookup
	}
	return p
}

func defaultLookup(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// EnsureURLAllowed validates scheme and host policy. It returns the parsed
// URL with its host normalized via IDNA.
func (p *Policy) EnsureURLAllowed(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fault.New(fault.CodeValidation, "invalid url: %v", err)
	}
	if u.Scheme != "https" {
		return nil, fault.New(fault.CodeUnsupportedScheme, "scheme %q is not allowed, use https", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fault.New(fault.CodeValidation, "url has no host")
	}

	normalized, err := normalizeHost(host)
	if err != nil {
		return nil, fault.New(fault.CodeValidation, "invalid host %q: %v", host, err)
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(normalized, port)
	} else {
		u.Host = normalized
	}

	for _, d := range p.DenyHosts {
		if hostMatches(normalized, d) {
			return nil, fault.New(fault.CodeForbiddenAddress, "host %q is deny-listed", normalized)
		}
	}
	if len(p.AllowHosts) > 0 {
		allowed := false
		for _, d := range p.AllowHosts {
			if hostMatches(normalized, d) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fault.New(fault.CodeForbiddenAddress, "host %q is not on the allowlist", normalized)
		}
	}
	return u, nil
}

// ResolveAndCheck resolves the host and rejects any private, loopback,
// link-local, multicast, reserved, or unspecified address. Literal IPs are
// classified without a DNS query.
func (p *Policy) ResolveAndCheck(ctx context.Context, host string) error {
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		if disallowedIP(ip) {
			return fault.New(fault.CodeForbiddenAddress, "address %s is not publicly routable", ip)
		}
		return nil
	}

	ips, err := p.lookup(ctx, host)
	if err != nil {
		return fault.New(fault.CodeIO, "resolve %s: %v", host, err)
	}
	if len(ips) == 0 {
		return fault.New(fault.CodeIO, "resolve %s: no addresses", host)
	}
	for _, ip := range ips {
		if disallowedIP(ip) {
			return fault.New(fault.CodeForbiddenAddress, "host %s resolves to %s", host, ip)
		}
	}
	return nil
}

// disallowedIP classifies addresses that must never be fetched from: the
// standard non-global ranges plus IPv4 reserved space (240.0.0.0/4) and the
// IETF protocol block (192.0.0.0/24).
func disallowedIP(ip net.IP) bool {
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		if v4[0] >= 240 {
			return true
		}
		if v4[0] == 192 && v4[1] == 0 && v4[2] == 0 {
			return true
		}
	}
	return false
}

func normalizeHost(host string) (string, error) {
	return idna.Lookup.ToASCII(strings.ToLower(strings.TrimSuffix(host, ".")))
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		n, err := normalizeHost(strings.TrimSpace(d))
		if err != nil || n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// hostMatches reports whether host equals domain or is a subdomain of it.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
