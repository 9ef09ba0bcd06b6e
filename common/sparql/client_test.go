package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liqk/gate/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultsJSON builds a sparql-results+json document from rows of
// var -> value
func resultsJSON(t *testing.T, rows ...map[string]string) string {
	t.Helper()

	bindings := make([]map[string]map[string]string, 0, len(rows))
	for _, row := range rows {
		b := map[string]map[string]string{}
		for name, value := range row {
			b[name] = map[string]string{"type": "literal", "value": value}
		}
		bindings = append(bindings, b)
	}

	doc := map[string]any{
		"head":    map[string]any{"vars": []string{}},
		"results": map[string]any{"bindings": bindings},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(raw)
}

func TestSelect_ParsesBindings(t *testing.T) {
	var gotContentType, gotAccept string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(resultsJSON(t,
			map[string]string{"label": "reports", "type": "dir"},
			map[string]string{"label": "q1.pdf"},
		)))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, upstream.Client(), logger.Discard())
	rows, err := c.Select(context.Background(), "SELECT ?label WHERE {}")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "reports", rows[0]["label"])
	assert.Equal(t, "dir", rows[0]["type"])
	assert.Equal(t, "q1.pdf", rows[1]["label"])
	_, bound := rows[1]["type"]
	assert.False(t, bound, "unbound variable must be absent from the row")

	assert.Equal(t, "application/sparql-query", gotContentType)
	assert.Equal(t, "application/sparql-results+json", gotAccept)
}

func TestSelect_EmptyResults(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsJSON(t)))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, upstream.Client(), logger.Discard())
	rows, err := c.Select(context.Background(), "SELECT * WHERE {}")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSelect_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse error", http.StatusBadRequest)
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, upstream.Client(), logger.Discard())
	_, err := c.Select(context.Background(), "not sparql")
	assert.Error(t, err)
}

func TestSelect_ResultTooLarge(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"bindings":[`))
		pad := bytes.Repeat([]byte(" "), 64*1024)
		for written := 0; written <= maxResultBytes; written += len(pad) {
			w.Write(pad)
		}
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, upstream.Client(), logger.Discard())
	_, err := c.Select(context.Background(), "SELECT * WHERE {}")
	require.Error(t, err, "a truncated result set must never be parsed as a smaller one")
	assert.Contains(t, err.Error(), "exceeds")
}

func TestSelect_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", &http.Client{}, logger.Discard())
	_, err := c.Select(context.Background(), "SELECT * WHERE {}")
	assert.Error(t, err)
}

func TestUpdate_StatusDrivesOutcome(t *testing.T) {
	var gotContentType string
	status := http.StatusNoContent
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/update", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(status)
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL, upstream.Client(), logger.Discard())

	require.NoError(t, c.Update(context.Background(), "INSERT DATA {}"))
	assert.Equal(t, "application/sparql-update", gotContentType)

	status = http.StatusInternalServerError
	assert.Error(t, c.Update(context.Background(), "INSERT DATA {}"))
}

func TestParseBindings_Garbage(t *testing.T) {
	assert.Nil(t, parseBindings([]byte("not json")))
	assert.Nil(t, parseBindings([]byte(`{"results":{}}`)))
}
