package network

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Resolver looks up IPv4 addresses for a domain.
type Resolver interface {
	LookupIPv4(ctx context.Context, domain string) ([]string, error)
}

// DigResolver resolves domains with `dig +short`.
type DigResolver struct {
	Runner Runner
}

// LookupIPv4 implements Resolver. Only lines that parse as IPv4 addresses
// are kept; CNAME targets and IPv6 answers are ignored.
func (r DigResolver) LookupIPv4(ctx context.Context, domain string) ([]string, error) {
	stdout, _, err := r.Runner.Run(ctx, "dig", "+short", domain)
	if err != nil {
		return nil, errors.Wrapf(err, "dig %s", domain)
	}
	return parseIPv4Lines(stdout), nil
}

func parseIPv4Lines(out []byte) []string {
	var ips []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		ip := net.ParseIP(string(line))
		if ip == nil || ip.To4() == nil {
			continue
		}
		ips = append(ips, ip.String())
	}
	return ips
}

// maxConcurrentLookups bounds parallel resolver calls.
const maxConcurrentLookups = 8

// ResolveAll resolves every domain in parallel and returns the union of IPs, sorted.
// Lookup failures for a domain contribute no IPs and are passed to onError.
func ResolveAll(ctx context.Context, r Resolver, domains []string, onError func(domain string, err error)) []string {
	var (
		mu  sync.Mutex
		set = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for _, domain := range domains {
		g.Go(func() error {
			ips, err := r.LookupIPv4(gctx, domain)
			if err != nil {
				if onError != nil {
					onError(domain, err)
				}
				return nil
			}
			mu.Lock()
			for _, ip := range ips {
				set[ip] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ips := make([]string, 0, len(set))
	for ip := range set {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}
