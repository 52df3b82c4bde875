// Package exclude gates indexing with a static set of disallowed hosts.
// It only decides whether a visit may be indexed; it plays no part in
// anchoring.
package exclude

import (
	"net/url"
	"strings"
)

// List holds lowercase host fragments. A URL is blocked when its host
// contains any of them.
type List struct {
	hosts []string
}

func New(hosts []string) *List {
	var cleaned []string
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			cleaned = append(cleaned, h)
		}
	}
	return &List{hosts: cleaned}
}

// Blocked reports whether rawURL must not be indexed. Unparseable URLs
// are blocked; a page we cannot attribute to a host is not worth keeping.
func (l *List) Blocked(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range l.hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}
