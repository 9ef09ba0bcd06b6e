package sparql

import (
	"fmt"
	"strings"
)

// Prefixes is the prologue shared by every query and update the gateway
// issues. The vocabulary matches what the provisioning tooling writes.
const Prefixes = `PREFIX posix: <http://www.w3.org/ns/posix/stat#>
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
PREFIX dc: <http://purl.org/dc/terms/>
PREFIX liqk: <http://liqk.org/schema#>
`

// SelectBuilder accumulates a SELECT query. It exists so that handlers
// never concatenate raw strings into query text: values enter patterns
// through Literal and IRIRef only.
type SelectBuilder struct {
	projection string
	graphs     []string
	patterns   []string
	orderBy    string
	limit      int
}

// NewSelect starts a SELECT with the given projection, e.g. "?rank" or
// "(MAX(?rank) AS ?maxRank)".
func NewSelect(projection string) *SelectBuilder {
	return &SelectBuilder{projection: projection}
}

// From adds a graph to the query's default graph. Repeated calls merge
// graphs, which is how policy triples meet containment triples.
func (b *SelectBuilder) From(graphIRI string) *SelectBuilder {
	b.graphs = append(b.graphs, graphIRI)
	return b
}

// Pattern appends one formatted triple pattern or group to the WHERE
// clause. Arguments must already be rendered (Literal, IRIRef, or
// variable names).
func (b *SelectBuilder) Pattern(format string, args ...any) *SelectBuilder {
	b.patterns = append(b.patterns, fmt.Sprintf(format, args...))
	return b
}

// OrderBy sets the ORDER BY expression
func (b *SelectBuilder) OrderBy(expr string) *SelectBuilder {
	b.orderBy = expr
	return b
}

// Limit caps the number of result rows
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	return b
}

// String renders the complete query with the shared prologue
func (b *SelectBuilder) String() string {
	var q strings.Builder
	q.WriteString(Prefixes)
	q.WriteString("SELECT ")
	q.WriteString(b.projection)
	for _, g := range b.graphs {
		q.WriteString(" FROM ")
		q.WriteString(IRIRef(g))
	}
	q.WriteString(" WHERE {\n")
	for _, p := range b.patterns {
		q.WriteString("    ")
		q.WriteString(p)
		q.WriteString("\n")
	}
	q.WriteString("}")
	if b.orderBy != "" {
		q.WriteString(" ORDER BY ")
		q.WriteString(b.orderBy)
	}
	if b.limit > 0 {
		fmt.Fprintf(&q, " LIMIT %d", b.limit)
	}
	return q.String()
}
