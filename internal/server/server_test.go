package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorview/tensorview/internal/loader"
	"github.com/tensorview/tensorview/internal/model"
	"github.com/tensorview/tensorview/internal/tree"
)

func testSnapshot() *loader.Snapshot {
	return &loader.Snapshot{
		Tensors: []model.TensorInfo{
			{Name: "model.attn.weight", DType: "F16", Shape: []int64{8, 8}, SizeBytes: 128, NumElements: 64},
			{Name: "model.mlp.weight", DType: "F16", Shape: []int64{8, 8}, SizeBytes: 128, NumElements: 64},
		},
		Metadata:        []model.MetadataInfo{{Name: "format", Value: "pt", ValueType: "string"}},
		Reports:         []model.FileReport{{Path: "a.safetensors", Format: model.FormatSafeTensors}},
		TotalParameters: 128,
		TotalSize:       256,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(testSnapshot(), nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHandleTree(t *testing.T) {
	ts := newTestServer(t)

	var body treeResponse
	getJSON(t, ts.URL+"/api/tree", &body)

	require.Len(t, body.Roots, 2)
	assert.Equal(t, tree.MetadataGroupName, body.Roots[0].Name)
	assert.Equal(t, "model", body.Roots[1].Name)
	assert.Equal(t, 2, body.Roots[1].TensorCount)
}

func TestHandleTreeFiltered(t *testing.T) {
	ts := newTestServer(t)

	var body treeResponse
	getJSON(t, ts.URL+"/api/tree?q=attn", &body)

	assert.Equal(t, "attn", body.Query)
	require.Len(t, body.Roots, 1, "metadata group disappears when filtered out")
	modelGroup := body.Roots[0]
	assert.Equal(t, 1, modelGroup.TensorCount)
}

func TestHandleTreeNoMatches(t *testing.T) {
	ts := newTestServer(t)

	var body treeResponse
	getJSON(t, ts.URL+"/api/tree?q=zzz", &body)
	assert.NotNil(t, body.Roots)
	assert.Empty(t, body.Roots)
}

func TestHandleSummary(t *testing.T) {
	ts := newTestServer(t)

	var body summaryResponse
	getJSON(t, ts.URL+"/api/summary", &body)

	assert.Equal(t, 1, body.Files)
	assert.Equal(t, 0, body.Failed)
	assert.Equal(t, 2, body.Tensors)
	assert.Equal(t, int64(128), body.TotalParameters)
	assert.Equal(t, "256 B", body.SizeHuman)
}

func TestHandleIndexPage(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestHealthLive(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	getJSON(t, ts.URL+"/health/live", &body)
	assert.Equal(t, "ok", body["status"])
}
