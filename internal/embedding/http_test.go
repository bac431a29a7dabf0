package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DreamCats/protindex/internal/config"
)

// residueServer answers with a 2-wide row per residue: [position, sequence index]
func residueServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req ResidueEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := ResidueEmbeddingResponse{Model: req.Model}
		for i, seq := range req.Sequences {
			rows := make([][]float32, len(seq))
			for p := range seq {
				rows[p] = []float32{float32(p), float32(i)}
			}
			resp.Embeddings = append(resp.Embeddings, rows)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testConfig(endpoint string) *config.EmbeddingConfig {
	return &config.EmbeddingConfig{
		Provider:       "http",
		APIKey:         "secret",
		Endpoint:       endpoint,
		Model:          "test/model",
		BatchSize:      2,
		TimeoutSeconds: 5,
		MaxRetries:     1,
	}
}

func TestHTTPClientEmbedResidues(t *testing.T) {
	var calls int32
	srv := residueServer(t, &calls)
	defer srv.Close()

	client, err := NewHTTPClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	out, err := client.EmbedResidues(context.Background(), []string{"MKT", "AV"})
	if err != nil {
		t.Fatalf("EmbedResidues() error = %v", err)
	}
	if len(out) != 2 || len(out[0]) != 3 || len(out[1]) != 2 {
		t.Fatalf("unexpected shapes: %v", out)
	}
	if out[1][1][0] != 1 || out[1][1][1] != 1 {
		t.Errorf("row = %v, want [1 1]", out[1][1])
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := residueServer(t, &calls)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = "wrong"
	cfg.MaxRetries = 3
	client, err := NewHTTPClient(cfg)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.EmbedResidues(context.Background(), []string{"MKT"})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("error = %v, want status 401", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestHTTPClientRejectsShapeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","embeddings":[[[1,2]]]}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.EmbedResidues(context.Background(), []string{"MKT"})
	if err == nil || !strings.Contains(err.Error(), "residue rows") {
		t.Fatalf("error = %v, want residue row mismatch", err)
	}
}

func TestServiceBatches(t *testing.T) {
	var calls int32
	srv := residueServer(t, &calls)
	defer srv.Close()

	svc, err := NewService(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	recs := records("a:MK", "b:MKT", "c:M", "d:AAAA", "e:W")
	out, err := svc.EmbedBatch(context.Background(), recs)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(out) != len(recs) {
		t.Fatalf("got %d embeddings, want %d", len(out), len(recs))
	}
	for i, emb := range out {
		if emb.Record.ID != recs[i].ID || len(emb.Residues) != recs[i].Len() {
			t.Errorf("embedding %d = %s/%d rows", i, emb.Record.ID, len(emb.Residues))
		}
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server called %d times, want 3 batches", n)
	}
}
