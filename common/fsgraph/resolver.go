package fsgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/policy"
	"github.com/liqk/gate/common/sparql"
)

const (
	directoryType = "http://www.w3.org/ns/posix/stat#Directory"
	fileType      = "http://www.w3.org/ns/posix/stat#File"
)

// ErrNotFound means a path label had no matching containment edge
var ErrNotFound = errors.New("path not found in filesystem graph")

// Node is a resolved filesystem-graph node
type Node struct {
	IRI      string
	Label    string
	IsDir    bool
	StoredAs string // physical blob name, files only
}

// Entry is one child of a directory listing
type Entry struct {
	Label string
	IsDir bool
}

// Resolver walks the containment hierarchy rooted at the directory
// labeled "/".
type Resolver struct {
	store  *sparql.Client
	logger *logger.Logger
}

// NewResolver creates a filesystem-graph resolver
func NewResolver(store *sparql.Client, log *logger.Logger) *Resolver {
	return &Resolver{store: store, logger: log}
}

// Resolve walks labels from the root, requiring one containment edge per
// hop. An empty label list resolves to the root itself; this is the same
// traversal with zero hops, not a special case. Any missing hop yields
// ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, labels []string) (*Node, error) {
	q := sparql.NewSelect("?node ?label ?type ?storedAs").
		From(policy.FilesystemGraph).
		Pattern("?root a posix:Directory .").
		Pattern("?root rdfs:label \"/\" .")

	current := "?root"
	for i, label := range labels {
		next := fmt.Sprintf("?n%d", i)
		q.Pattern("%s posix:includes %s .", current, next).
			Pattern("%s rdfs:label %s .", next, sparql.Literal(label))
		current = next
	}

	q.Pattern("BIND(%s AS ?node)", current).
		Pattern("?node rdfs:label ?label .").
		Pattern("?node rdf:type ?type .").
		Pattern("OPTIONAL { ?node liqk:storedAs ?storedAs }")

	rows, err := r.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", strings.Join(labels, "/"), err)
	}

	node := &Node{}
	found := false
	for _, row := range rows {
		switch row["type"] {
		case directoryType:
			node.IsDir = true
		case fileType:
			node.IsDir = false
		default:
			continue
		}
		node.IRI = row["node"]
		node.Label = row["label"]
		node.StoredAs = row["storedAs"]
		found = true
		break
	}

	if !found {
		return nil, ErrNotFound
	}
	return node, nil
}

// ListChildren returns a directory's immediate children ordered with
// directories before files, then case-insensitively by label.
func (r *Resolver) ListChildren(ctx context.Context, dirIRI string) ([]Entry, error) {
	q := sparql.NewSelect("?child ?label ?type").
		From(policy.FilesystemGraph).
		Pattern("%s posix:includes ?child .", sparql.IRIRef(dirIRI)).
		Pattern("?child rdfs:label ?label .").
		Pattern("?child rdf:type ?type .").
		String()

	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", dirIRI, err)
	}

	seen := make(map[string]bool, len(rows))
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		iri := row["child"]
		if seen[iri] {
			continue
		}
		switch row["type"] {
		case directoryType:
			entries = append(entries, Entry{Label: row["label"], IsDir: true})
		case fileType:
			entries = append(entries, Entry{Label: row["label"], IsDir: false})
		default:
			continue
		}
		seen[iri] = true
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Label) < strings.ToLower(entries[j].Label)
	})

	return entries, nil
}

// UploadDir resolves the IRI of the well-known upload directory directly
// under the root. Uploads land here and the same IRI is the action target
// that gates them.
func (r *Resolver) UploadDir(ctx context.Context) (string, error) {
	node, err := r.Resolve(ctx, []string{"upload"})
	if err != nil {
		return "", fmt.Errorf("resolving upload directory: %w", err)
	}
	if !node.IsDir {
		return "", fmt.Errorf("upload node %s is not a directory", node.IRI)
	}
	return node.IRI, nil
}
