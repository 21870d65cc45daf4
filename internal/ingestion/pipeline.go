// Package ingestion implements the sync and rebuild pipelines (§4.12):
// fetch (sync only) or re-read (rebuild) the drug catalog, build the
// canonical document text, upsert relational rows, and refresh the
// vector index. Unlike the query path, ingestion failures are NOT
// degraded — a failed step propagates after recording a counter, and
// whatever was committed before the failure stays committed.
package ingestion

import (
	"context"
	"fmt"
	"strconv"

	"retrievalcore/internal/catalog"
	"retrievalcore/internal/rag/chunker"
	"retrievalcore/internal/rag/embedder"
	"retrievalcore/internal/rag/ingest"
	"retrievalcore/internal/upstreamcatalog"
	"retrievalcore/internal/vectorstore"
)

// embedBatchSize matches §4.12's "embed all documents (batch ≤ 100)".
const embedBatchSize = 100

// Stats summarizes one sync or rebuild run for the admin/stats surface.
type Stats struct {
	DrugsUpserted  int
	VectorsUpdated int
	Failed         string
}

// Pipeline wires the upstream catalog collaborator, the relational
// catalog store, and the drug vector store together.
type Pipeline struct {
	Upstream *upstreamcatalog.Client
	Catalog  catalog.Store
	Vectors  vectorstore.Store
	Embedder embedder.Embedder
	Chunker  chunker.Chunker
}

// Sync fetches up to maxPages from the upstream catalog, cleans and
// upserts every drug, and — when buildVectors is set — wipes and
// reloads the drug vector collection from the freshly upserted rows.
func (p *Pipeline) Sync(ctx context.Context, maxPages int, buildVectors bool) (Stats, error) {
	raw, err := p.Upstream.FetchPages(ctx, maxPages)
	if err != nil {
		return Stats{}, fmt.Errorf("ingestion: fetch upstream pages: %w", err)
	}

	stats := Stats{}
	for _, r := range raw {
		d := catalog.Drug{
			ID:           r.ID,
			Name:         r.Name,
			Manufacturer: upstreamcatalog.Clean(r.Manufacturer),
			Efficacy:     upstreamcatalog.Clean(r.Efficacy),
			UseMethod:    upstreamcatalog.Clean(r.UseMethod),
			Warnings:     upstreamcatalog.Clean(r.Warnings),
			CautionInfo:  upstreamcatalog.Clean(r.CautionInfo),
			Interactions: upstreamcatalog.Clean(r.Interactions),
			SideEffects:  upstreamcatalog.Clean(r.SideEffects),
			Storage:      upstreamcatalog.Clean(r.Storage),
		}
		if err := p.Catalog.UpsertDrug(ctx, d); err != nil {
			return stats, fmt.Errorf("ingestion: upsert drug %s: %w", d.ID, err)
		}
		stats.DrugsUpserted++
	}

	if !buildVectors {
		return stats, nil
	}
	n, err := p.rebuildVectors(ctx)
	stats.VectorsUpdated = n
	if err != nil {
		return stats, fmt.Errorf("ingestion: build vectors: %w", err)
	}
	return stats, nil
}

// Rebuild re-reads the already-stored drugs, regenerates document text
// deterministically, and reloads the vector collection. No upstream
// fetch is performed.
func (p *Pipeline) Rebuild(ctx context.Context) (Stats, error) {
	n, err := p.rebuildVectors(ctx)
	if err != nil {
		return Stats{VectorsUpdated: n}, fmt.Errorf("ingestion: rebuild vectors: %w", err)
	}
	return Stats{VectorsUpdated: n}, nil
}

// rebuildVectors deletes all existing dense vectors for the drug
// collection and re-embeds every stored drug's canonical document text
// in batches of embedBatchSize, chunking documents that exceed one
// chunk's worth of text via the configured Chunker.
func (p *Pipeline) rebuildVectors(ctx context.Context) (int, error) {
	if err := p.Vectors.DeleteCollection(ctx); err != nil {
		return 0, fmt.Errorf("delete collection: %w", err)
	}

	texts, err := p.Catalog.LoadDrugTexts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load drug texts: %w", err)
	}

	type pendingVector struct {
		id   string
		text string
	}
	var pending []pendingVector
	for drugID, text := range texts {
		chunks, err := p.Chunker.Chunk(text, chunkingOptions())
		if err != nil {
			return 0, fmt.Errorf("chunk drug %s: %w", drugID, err)
		}
		for _, c := range chunks {
			pending = append(pending, pendingVector{id: vectorID(drugID, c.Index), text: c.Text})
		}
	}

	total := 0
	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		batchTexts := make([]string, len(batch))
		for i, pv := range batch {
			batchTexts[i] = pv.text
		}
		embeddings, err := p.Embedder.EmbedBatch(ctx, batchTexts)
		if err != nil {
			return total, fmt.Errorf("embed batch: %w", err)
		}
		docs := make([]vectorstore.Document, len(batch))
		for i, pv := range batch {
			docs[i] = vectorstore.Document{ID: pv.id, Text: pv.text, Dense: embeddings[i]}
		}
		if err := p.Vectors.UpsertDocuments(ctx, docs); err != nil {
			return total, fmt.Errorf("upsert vectors: %w", err)
		}
		total += len(docs)
	}
	return total, nil
}

// vectorID builds the stable chunk-vector id a rebuild reproduces
// identically given the same drug id and chunk index (§4.12 Determinism).
func vectorID(drugID string, idx int) string {
	return "drugvec:" + drugID + ":" + strconv.Itoa(idx)
}

// chunkingOptions is the fixed chunking strategy applied to every
// drug's canonical document text.
func chunkingOptions() ingest.ChunkingOptions {
	return ingest.ChunkingOptions{Strategy: "fixed", MaxTokens: 256, Overlap: 0}
}
