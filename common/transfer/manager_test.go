package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/liqk/gate/common/blob"
	"github.com/liqk/gate/common/logger"
	"github.com/liqk/gate/common/sparql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadDir = "urn:uuid:upload-dir"

// fakeGraph records updates and answers queries with canned JSON.
type fakeGraph struct {
	updates      []string
	queryAnswer  string
	updateStatus int
}

func (f *fakeGraph) client(t *testing.T) *sparql.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		switch r.URL.Path {
		case "/update":
			f.updates = append(f.updates, string(body))
			if f.updateStatus != 0 {
				w.WriteHeader(f.updateStatus)
			}
		case "/query":
			w.Write([]byte(f.queryAnswer))
		}
	}))
	t.Cleanup(srv.Close)

	return sparql.NewClient(srv.URL, srv.Client(), logger.Discard())
}

func newTestManager(t *testing.T, graph *fakeGraph, maxBytes int64) *Manager {
	t.Helper()
	store, err := blob.NewStore(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	return NewManager(store, graph.client(t), logger.Discard(), maxBytes)
}

// multipartBody builds a multipart stream of filename -> content pairs
// in insertion order.
func multipartBody(t *testing.T, files [][2]string) *multipart.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("file", f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return multipart.NewReader(&buf, w.Boundary())
}

func TestIngestMultipart_RoundTrip(t *testing.T) {
	graph := &fakeGraph{}
	m := newTestManager(t, graph, 1<<20)

	results, err := m.IngestMultipart(context.Background(),
		multipartBody(t, [][2]string{
			{"report.pdf", "pdf bytes"},
			{"data.csv", "a,b,c"},
		}), uploadDir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, want := range []struct{ name, ext, content string }{
		{"report.pdf", "pdf", "pdf bytes"},
		{"data.csv", "csv", "a,b,c"},
	} {
		res := results[i]
		assert.Equal(t, want.name, res.Filename)
		assert.Equal(t, fmt.Sprintf("%s.%s", res.UUID, want.ext), res.StoredAs)
		assert.Equal(t, int64(len(want.content)), res.Size)
		assert.True(t, res.Indexed)

		got, err := os.ReadFile(m.Store().Path(res.StoredAs))
		require.NoError(t, err)
		assert.Equal(t, want.content, string(got))
	}

	require.Len(t, graph.updates, 2)
	assert.Contains(t, graph.updates[0], `rdfs:label "report.pdf"`)
	assert.Contains(t, graph.updates[0], "posix:size 9")
	assert.Contains(t, graph.updates[0], `dc:format "application/pdf"`)
	assert.Contains(t, graph.updates[0], "<"+uploadDir+"> posix:includes")
	assert.Contains(t, graph.updates[0], "urn:uuid:"+results[0].UUID.String())
}

func TestIngestMultipart_SkipsUnusableNames(t *testing.T) {
	graph := &fakeGraph{}
	m := newTestManager(t, graph, 1<<20)

	results, err := m.IngestMultipart(context.Background(),
		multipartBody(t, [][2]string{
			{".bashrc", "dotfile"},
			{"../../escape.txt", "kept as base name"},
			{"ok.txt", "fine"},
		}), uploadDir)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "escape.txt", results[0].Filename)
	assert.Equal(t, "ok.txt", results[1].Filename)
}

func TestIngestMultipart_CeilingAbortsBatch(t *testing.T) {
	graph := &fakeGraph{}
	m := newTestManager(t, graph, 10)

	results, err := m.IngestMultipart(context.Background(),
		multipartBody(t, [][2]string{
			{"small.txt", "12345678"},
			{"straw.txt", "123"},
		}), uploadDir)
	assert.ErrorIs(t, err, blob.ErrTooLarge)

	// The first item landed within budget and stays durable.
	require.Len(t, results, 1)
	assert.Equal(t, "small.txt", results[0].Filename)
	assert.True(t, m.Store().Exists(results[0].StoredAs))
}

func TestIngestMultipart_IndexFailureIsPartialSuccess(t *testing.T) {
	graph := &fakeGraph{updateStatus: http.StatusInternalServerError}
	m := newTestManager(t, graph, 1<<20)

	results, err := m.IngestMultipart(context.Background(),
		multipartBody(t, [][2]string{{"doc.txt", "content"}}), uploadDir)
	require.NoError(t, err, "an index failure is not an upload failure")

	require.Len(t, results, 1)
	assert.False(t, results[0].Indexed)
	assert.True(t, m.Store().Exists(results[0].StoredAs), "bytes stay durable when indexing fails")
}

func TestReplace(t *testing.T) {
	id := uuid.New()
	graph := &fakeGraph{
		queryAnswer: fmt.Sprintf(`{"results":{"bindings":[{"storedAs":{"type":"literal","value":"%s.txt"}}]}}`, id),
	}
	m := newTestManager(t, graph, 1<<20)

	storedAs := id.String() + ".txt"
	_, err := m.Store().Write(storedAs, strings.NewReader("old"), blob.NewBudget(1<<20))
	require.NoError(t, err)

	size, err := m.Replace(context.Background(), id, strings.NewReader("replacement"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("replacement")), size)

	got, err := os.ReadFile(m.Store().Path(storedAs))
	require.NoError(t, err)
	assert.Equal(t, "replacement", string(got))

	require.Len(t, graph.updates, 1)
	assert.Contains(t, graph.updates[0], "posix:size 11")
	assert.Contains(t, graph.updates[0], "urn:uuid:"+id.String())
}

func TestReplace_UnknownResource(t *testing.T) {
	graph := &fakeGraph{queryAnswer: `{"results":{"bindings":[]}}`}
	m := newTestManager(t, graph, 1<<20)

	_, err := m.Replace(context.Background(), uuid.New(), strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNoSuchResource)
}

func TestBlobPath_MissingBlob(t *testing.T) {
	graph := &fakeGraph{}
	m := newTestManager(t, graph, 1<<20)

	_, err := m.BlobPath("never-written.bin")
	assert.ErrorIs(t, err, ErrMissingBlob)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":        "report.pdf",
		"dir/report.pdf":    "report.pdf",
		`c:\docs\notes.txt`: "notes.txt",
		".hidden":           "",
		"path/.hidden":      "",
		"":                  "",
		"trailing/":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", extension("report.pdf"))
	assert.Equal(t, "gz", extension("archive.tar.gz"))
	assert.Equal(t, "bin", extension("README"))
	assert.Equal(t, "bin", extension("trailing."))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "application/pdf", mediaType("x.pdf"))
	assert.Equal(t, "application/octet-stream", mediaType("x.zzzz"))
}
