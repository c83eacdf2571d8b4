package cache

import (
	"slices"
	"strings"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// DomainIndex maps a cookie domain to the cookies believed to exist under it.
// A domain key is present only while its collection is non-empty.
//
// DomainIndex is not safe for concurrent use; the Manager guards it.
type DomainIndex struct {
	domains map[string][]*cookies.Cookie
	total   int
}

// NewDomainIndex creates an empty index.
func NewDomainIndex() *DomainIndex {
	return &DomainIndex{
		domains: make(map[string][]*cookies.Cookie),
	}
}

// Add appends c to its domain's collection. Add does not check for an
// existing entry with the same identity; callers remove first.
func (idx *DomainIndex) Add(c *cookies.Cookie) {
	idx.domains[c.Domain] = append(idx.domains[c.Domain], c)
	idx.total++
}

// Remove drops every entry sharing c's identity and returns how many were
// dropped. Unknown domains and identities are a no-op.
func (idx *DomainIndex) Remove(c *cookies.Cookie) int {
	existing, ok := idx.domains[c.Domain]
	if !ok {
		return 0
	}

	id := c.Identity()
	kept := make([]*cookies.Cookie, 0, len(existing))
	for _, e := range existing {
		if e.Identity() != id {
			kept = append(kept, e)
		}
	}

	removed := len(existing) - len(kept)
	if removed == 0 {
		return 0
	}

	idx.total -= removed
	if len(kept) == 0 {
		delete(idx.domains, c.Domain)
	} else {
		idx.domains[c.Domain] = kept
	}
	return removed
}

// Domains returns the sorted domain keys containing filter.
// An empty filter returns every domain.
func (idx *DomainIndex) Domains(filter string) []string {
	domains := make([]string, 0, len(idx.domains))
	for domain := range idx.domains {
		if filter == "" || strings.Contains(domain, filter) {
			domains = append(domains, domain)
		}
	}
	slices.Sort(domains)
	return domains
}

// Cookies returns the live collection for domain, or nil.
func (idx *DomainIndex) Cookies(domain string) []*cookies.Cookie {
	return idx.domains[domain]
}

// Count returns the number of cookies cached under domain.
func (idx *DomainIndex) Count(domain string) int {
	return len(idx.domains[domain])
}

// Len returns the number of domains.
func (idx *DomainIndex) Len() int {
	return len(idx.domains)
}

// Total returns the number of cookies across all domains.
func (idx *DomainIndex) Total() int {
	return idx.total
}

// Clear empties the index.
func (idx *DomainIndex) Clear() {
	idx.domains = make(map[string][]*cookies.Cookie)
	idx.total = 0
}

// Select returns the cookies of every domain match accepts, domains in sorted order.
func (idx *DomainIndex) Select(match func(domain string) bool) []*cookies.Cookie {
	var selected []*cookies.Cookie
	for _, domain := range idx.Domains("") {
		if match(domain) {
			selected = append(selected, idx.domains[domain]...)
		}
	}
	return selected
}
