// Package catalog owns the relational data model (Drug, Disease, their
// vectors, and the append-only search log) and a pgx-backed store
// implementing the narrow data-access interfaces the retrieval core
// depends on. Records are immutable after ingest except by resync.
package catalog

import "time"

// Drug is a catalog drug record, stable under resync except for the
// long-form fields a sync rewrites wholesale.
type Drug struct {
	ID           string
	Name         string
	Manufacturer string
	Efficacy     string
	UseMethod    string
	Warnings     string
	CautionInfo  string
	Interactions string
	SideEffects  string
	Storage      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DrugVector is one dense-embedding chunk owned by a Drug.
type DrugVector struct {
	ID        string
	DrugID    string
	ChunkIdx  int
	Text      string
	Embedding []float32
}

// Disease is a catalog disease record.
type Disease struct {
	ID           string
	Name         string
	Description  string
	Causes       string
	Symptoms     string
	Diagnosis    string
	Treatment    string
	Prevention   string
	RelatedDrugs []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DiseaseVector is one dense-embedding chunk owned by a Disease. ChunkType
// distinguishes e.g. "symptoms" from "full" for de-duplication: retrieval
// keeps only the highest-similarity vector per disease.
type DiseaseVector struct {
	ID        string
	DiseaseID string
	ChunkType string
	Text      string
	Embedding []float32
}

// SearchLog is an append-only query audit row. Write failures are
// swallowed by callers — this is diagnostics, never a hard dependency.
type SearchLog struct {
	Query          string
	ResultCount    int
	ResponseTimeMS int64
	CreatedAt      time.Time
}

// SearchableText renders the text a cross-encoder reranker should see
// for this drug, leading with efficacy per the reranker input-shaping
// rule: efficacy first to maximize symptom→indication signal.
func (d Drug) SearchableText() string {
	caution := d.CautionInfo
	if len(caution) > 200 {
		caution = caution[:200]
	}
	return d.Efficacy + ". product: " + d.Name + ". applies: " + caution
}

// IndexText renders the text indexed by BM25/embedding at ingest time —
// deliberately different from SearchableText, which is recomposed at
// rerank time from the live record rather than reused from the index.
func (d Drug) IndexText() string {
	return d.Name + " " + d.Efficacy + " " + d.UseMethod + " " + d.CautionInfo + " " + d.SideEffects
}

// SearchableText renders the disease candidate text synthesized before
// reranking, per the disease-search contract.
func (d Disease) SearchableText() string {
	return "질병: " + d.Name + ". 증상: " + d.Symptoms + ". 원인: " + d.Causes + ". 치료: " + d.Treatment
}
