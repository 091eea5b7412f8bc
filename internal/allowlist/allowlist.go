// Package allowlist decides which client addresses may call the logging
// endpoint.
package allowlist

import (
	"fmt"
	"net/netip"
	"strings"
)

// Entry is a single address or an address/prefix-length pair.
type Entry struct {
	raw    string
	prefix netip.Prefix // zero for single addresses
}

func (e Entry) String() string { return e.raw }

// IsRange reports whether the entry covers a prefix rather than one address.
func (e Entry) IsRange() bool { return e.prefix.IsValid() }

// Matches applies the entry to addr. Single addresses match by exact string
// comparison. Ranges match when addr and the subnet are equal under the
// prefix's high-order mask.
func (e Entry) Matches(addr string) bool {
	if !e.IsRange() {
		return addr == e.raw
	}
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	a = a.WithZone("").Unmap()
	if a.BitLen() != e.prefix.Addr().BitLen() {
		return false
	}
	masked, err := a.Prefix(e.prefix.Bits())
	if err != nil {
		return false
	}
	return masked == e.prefix
}

// List is an ordered, read-only allow-list.
type List struct {
	entries []Entry
}

// Parse builds a List. Every entry must be a valid address or prefix.
func Parse(specs []string) (*List, error) {
	l := &List{entries: make([]Entry, 0, len(specs))}
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		e, err := parseEntry(s)
		if err != nil {
			return nil, err
		}
		l.entries = append(l.entries, e)
	}
	return l, nil
}

func parseEntry(s string) (Entry, error) {
	if !strings.Contains(s, "/") {
		if _, err := netip.ParseAddr(s); err != nil {
			return Entry{}, fmt.Errorf("allow-list entry %q: %w", s, err)
		}
		return Entry{raw: s}, nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Entry{}, fmt.Errorf("allow-list entry %q: %w", s, err)
	}
	p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits())
	if p.Addr().Is4() && p.Bits() > 32 {
		return Entry{}, fmt.Errorf("allow-list entry %q: prefix too long", s)
	}
	return Entry{raw: s, prefix: p.Masked()}, nil
}

// Allows reports whether addr matches at least one entry.
func (l *List) Allows(addr string) bool {
	for _, e := range l.entries {
		if e.Matches(addr) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in their configured order.
func (l *List) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *List) Len() int { return len(l.entries) }
