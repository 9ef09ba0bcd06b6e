package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liqk/gate/common/blob"
	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/policy"
	"github.com/liqk/gate/common/sparql"
)

var (
	// ErrNoSuchResource means the graph holds no record for the identifier
	ErrNoSuchResource = errors.New("no such resource")

	// ErrMissingBlob means the graph record exists but the physical file is
	// gone. That is a server-side consistency failure, never a client error.
	ErrMissingBlob = errors.New("blob missing for indexed resource")
)

const fallbackExtension = "bin"

// UploadResult describes one ingested item
type UploadResult struct {
	Filename string    `json:"filename"`
	UUID     uuid.UUID `json:"uuid"`
	StoredAs string    `json:"-"`
	Size     int64     `json:"-"`

	// Indexed is false when the bytes are durable but the graph-side
	// record failed to commit (partial success, re-indexable later).
	Indexed bool `json:"-"`
}

// Manager streams uploads to the blob store and mirrors them into the
// filesystem graph. Bytes first, index second; an index failure never
// rolls the bytes back.
type Manager struct {
	store    *blob.Store
	graph    *sparql.Client
	logger   *logger.Logger
	maxBytes int64
}

// NewManager creates a transfer manager with the given cumulative
// per-request upload ceiling.
func NewManager(store *blob.Store, graph *sparql.Client, log *logger.Logger, maxBytes int64) *Manager {
	return &Manager{
		store:    store,
		graph:    graph,
		logger:   log,
		maxBytes: maxBytes,
	}
}

// Store exposes the underlying blob store for the download path
func (m *Manager) Store() *blob.Store {
	return m.store
}

// IngestMultipart consumes a multipart stream part by part, never
// buffering a whole payload. Items with unusable names are skipped
// without aborting the batch. The size ceiling spans the whole request;
// exceeding it aborts with blob.ErrTooLarge after the partial file is
// deleted.
func (m *Manager) IngestMultipart(ctx context.Context, mr *multipart.Reader, uploadDirIRI string) ([]UploadResult, error) {
	budget := blob.NewBudget(m.maxBytes)
	var results []UploadResult

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return results, fmt.Errorf("reading multipart stream: %w", err)
		}

		name := sanitizeFilename(part.FileName())
		if name == "" {
			m.logger.Warn("skipping upload item with unusable name", "filename", part.FileName())
			part.Close()
			continue
		}

		res, err := m.ingestOne(ctx, name, part, budget, uploadDirIRI)
		part.Close()
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
}

// ingestOne streams a single item to disk and indexes it
func (m *Manager) ingestOne(ctx context.Context, name string, r io.Reader, budget *blob.Budget, uploadDirIRI string) (*UploadResult, error) {
	id := uuid.New()
	ext := extension(name)
	storedAs := fmt.Sprintf("%s.%s", id, ext)

	size, err := m.store.Write(storedAs, r, budget)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		Filename: name,
		UUID:     id,
		StoredAs: storedAs,
		Size:     size,
	}

	if err := m.graph.Update(ctx, insertResource(id, name, storedAs, size, mediaType(storedAs), uploadDirIRI)); err != nil {
		// The bytes are durable; re-indexing can be retried out of band.
		m.logger.Warn("file stored but graph indexing failed",
			"filename", name,
			"stored_as", storedAs,
			"error", err)
		return result, nil
	}

	result.Indexed = true
	m.logger.Info("file uploaded and indexed",
		"filename", name,
		"stored_as", storedAs,
		"uuid", id,
		"bytes", size)
	return result, nil
}

// Replace streams a raw body over an existing resource's blob. The write
// goes to a temp file and is renamed over the old name, so concurrent
// downloads never see a torn file; the stored size is then updated in the
// graph (last write wins on conflict).
func (m *Manager) Replace(ctx context.Context, id uuid.UUID, r io.Reader) (int64, error) {
	storedAs, err := m.StoredName(ctx, id)
	if err != nil {
		return 0, err
	}

	size, err := m.store.Write(storedAs, r, blob.NewBudget(m.maxBytes))
	if err != nil {
		return 0, err
	}

	if err := m.graph.Update(ctx, updateSize(id, size)); err != nil {
		m.logger.Warn("blob replaced but size update failed",
			"uuid", id,
			"stored_as", storedAs,
			"error", err)
	}

	return size, nil
}

// StoredName resolves a resource identifier to its physical blob name
func (m *Manager) StoredName(ctx context.Context, id uuid.UUID) (string, error) {
	q := sparql.NewSelect("?storedAs").
		From(policy.FilesystemGraph).
		Pattern("%s liqk:storedAs ?storedAs .", sparql.IRIRef(ResourceIRI(id))).
		Limit(1).
		String()

	rows, err := m.graph.Select(ctx, q)
	if err != nil {
		return "", fmt.Errorf("looking up stored name for %s: %w", id, err)
	}
	if len(rows) == 0 || rows[0]["storedAs"] == "" {
		return "", ErrNoSuchResource
	}
	return rows[0]["storedAs"], nil
}

// BlobPath returns the on-disk path for a stored name, verifying the
// physical file actually exists for its graph record.
func (m *Manager) BlobPath(storedAs string) (string, error) {
	if !m.store.Exists(storedAs) {
		return "", ErrMissingBlob
	}
	return m.store.Path(storedAs), nil
}

// ResourceIRI renders a resource identifier as its graph IRI
func ResourceIRI(id uuid.UUID) string {
	return "urn:uuid:" + id.String()
}

// sanitizeFilename reduces a client-supplied name to its base component.
// Empty names and dotfiles come back as "" and are rejected per item.
func sanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

// extension returns the last dot-delimited suffix of a sanitized name,
// falling back to a generic binary extension.
func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return fallbackExtension
}

// mediaType infers a media type from a stored name, octet-stream when
// nothing matches.
func mediaType(name string) string {
	mt := mime.TypeByExtension("." + extension(name))
	if mt == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

func insertResource(id uuid.UUID, label, storedAs string, size int64, mediaType, uploadDirIRI string) string {
	return sparql.Prefixes + fmt.Sprintf(`INSERT DATA {
    GRAPH %s {
        %s rdf:type posix:File ;
            rdfs:label %s ;
            posix:size %d ;
            dc:format %s ;
            dc:created %s^^xsd:dateTime ;
            liqk:storedAs %s .
        %s posix:includes %s .
    }
}`,
		sparql.IRIRef(policy.FilesystemGraph),
		sparql.IRIRef(ResourceIRI(id)),
		sparql.Literal(label),
		size,
		sparql.Literal(mediaType),
		sparql.Literal(time.Now().UTC().Format(time.RFC3339)),
		sparql.Literal(storedAs),
		sparql.IRIRef(uploadDirIRI),
		sparql.IRIRef(ResourceIRI(id)),
	)
}

func updateSize(id uuid.UUID, size int64) string {
	res := sparql.IRIRef(ResourceIRI(id))
	graph := sparql.IRIRef(policy.FilesystemGraph)
	return sparql.Prefixes + fmt.Sprintf(`DELETE { GRAPH %s { %s posix:size ?old } }
INSERT { GRAPH %s { %s posix:size %d } }
WHERE { GRAPH %s { OPTIONAL { %s posix:size ?old } } }`,
		graph, res, graph, res, size, graph, res)
}
