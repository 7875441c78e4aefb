package domain

// DomainGroup is a derived view of the Documents sharing one host.
// It is recomputed from a snapshot on every read and never persisted.
type DomainGroup struct {
	// Domain is the shared host.
	Domain string `json:"domain"`

	// StyleSize is the sum of ContentSize over Children, in MB.
	StyleSize float64 `json:"styleSize"`

	// Children are the member documents in input order.
	Children []Document `json:"children"`
}

// GroupByDomain groups docs by Domain. Groups appear in the order their
// domain first appears in docs; an empty input yields an empty result.
func GroupByDomain(docs []Document) []DomainGroup {
	groups := make([]DomainGroup, 0)
	index := make(map[string]int)

	for i := range docs {
		pos, ok := index[docs[i].Domain]
		if !ok {
			pos = len(groups)
			index[docs[i].Domain] = pos
			groups = append(groups, DomainGroup{Domain: docs[i].Domain})
		}
		groups[pos].Children = append(groups[pos].Children, docs[i])
		groups[pos].StyleSize += docs[i].ContentSize
	}

	return groups
}
