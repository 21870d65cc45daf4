package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the narrow relational data-access interface the retrieval
// core depends on — drugs and diseases plus the append-only log.
type Store interface {
	UpsertDrug(ctx context.Context, d Drug) error
	GetDrug(ctx context.Context, id string) (Drug, bool, error)
	ListDrugs(ctx context.Context, limit, offset int) ([]Drug, error)
	DeleteDrug(ctx context.Context, id string) error

	UpsertDisease(ctx context.Context, d Disease) error
	GetDisease(ctx context.Context, id string) (Disease, bool, error)
	ListDiseases(ctx context.Context, limit, offset int) ([]Disease, error)

	LoadDrugTexts(ctx context.Context) (map[string]string, error)
	LoadDiseaseTexts(ctx context.Context) (map[string]string, error)

	AppendSearchLog(ctx context.Context, l SearchLog) error
	Stats(ctx context.Context) (map[string]int, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds the pgx-backed catalog store and ensures its
// schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (Store, error) {
	s := &pgStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *pgStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drugs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			manufacturer TEXT,
			efficacy TEXT,
			use_method TEXT,
			warnings TEXT,
			caution_info TEXT,
			interactions TEXT,
			side_effects TEXT,
			storage TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS diseases (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			causes TEXT,
			symptoms TEXT,
			diagnosis TEXT,
			treatment TEXT,
			prevention TEXT,
			related_drugs TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS search_logs (
			query TEXT NOT NULL,
			result_count INT NOT NULL,
			response_time_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *pgStore) UpsertDrug(ctx context.Context, d Drug) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO drugs (id, name, manufacturer, efficacy, use_method, warnings, caution_info, interactions, side_effects, storage, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())
ON CONFLICT (id) DO UPDATE SET
	name=EXCLUDED.name, manufacturer=EXCLUDED.manufacturer, efficacy=EXCLUDED.efficacy,
	use_method=EXCLUDED.use_method, warnings=EXCLUDED.warnings, caution_info=EXCLUDED.caution_info,
	interactions=EXCLUDED.interactions, side_effects=EXCLUDED.side_effects, storage=EXCLUDED.storage,
	updated_at=now()
`, d.ID, d.Name, d.Manufacturer, d.Efficacy, d.UseMethod, d.Warnings, d.CautionInfo, d.Interactions, d.SideEffects, d.Storage)
	return err
}

func (s *pgStore) GetDrug(ctx context.Context, id string) (Drug, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, manufacturer, efficacy, use_method, warnings, caution_info, interactions, side_effects, storage, created_at, updated_at
FROM drugs WHERE id=$1`, id)
	var d Drug
	err := row.Scan(&d.ID, &d.Name, &d.Manufacturer, &d.Efficacy, &d.UseMethod, &d.Warnings, &d.CautionInfo, &d.Interactions, &d.SideEffects, &d.Storage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Drug{}, false, nil
	}
	return d, true, nil
}

func (s *pgStore) ListDrugs(ctx context.Context, limit, offset int) ([]Drug, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, name, manufacturer, efficacy, use_method, warnings, caution_info, interactions, side_effects, storage, created_at, updated_at
FROM drugs ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Drug, 0, limit)
	for rows.Next() {
		var d Drug
		if err := rows.Scan(&d.ID, &d.Name, &d.Manufacturer, &d.Efficacy, &d.UseMethod, &d.Warnings, &d.CautionInfo, &d.Interactions, &d.SideEffects, &d.Storage, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *pgStore) DeleteDrug(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM drugs WHERE id=$1`, id)
	return err
}

func (s *pgStore) UpsertDisease(ctx context.Context, d Disease) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO diseases (id, name, description, causes, symptoms, diagnosis, treatment, prevention, related_drugs, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
ON CONFLICT (id) DO UPDATE SET
	name=EXCLUDED.name, description=EXCLUDED.description, causes=EXCLUDED.causes, symptoms=EXCLUDED.symptoms,
	diagnosis=EXCLUDED.diagnosis, treatment=EXCLUDED.treatment, prevention=EXCLUDED.prevention,
	related_drugs=EXCLUDED.related_drugs, updated_at=now()
`, d.ID, d.Name, d.Description, d.Causes, d.Symptoms, d.Diagnosis, d.Treatment, d.Prevention, d.RelatedDrugs)
	return err
}

func (s *pgStore) GetDisease(ctx context.Context, id string) (Disease, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, description, causes, symptoms, diagnosis, treatment, prevention, related_drugs, created_at, updated_at
FROM diseases WHERE id=$1`, id)
	var d Disease
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Causes, &d.Symptoms, &d.Diagnosis, &d.Treatment, &d.Prevention, &d.RelatedDrugs, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Disease{}, false, nil
	}
	return d, true, nil
}

func (s *pgStore) ListDiseases(ctx context.Context, limit, offset int) ([]Disease, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, name, description, causes, symptoms, diagnosis, treatment, prevention, related_drugs, created_at, updated_at
FROM diseases ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Disease, 0, limit)
	for rows.Next() {
		var d Disease
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Causes, &d.Symptoms, &d.Diagnosis, &d.Treatment, &d.Prevention, &d.RelatedDrugs, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *pgStore) LoadDrugTexts(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, efficacy, use_method, caution_info, side_effects FROM drugs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, name, efficacy, useMethod, caution, sideEffects string
		if err := rows.Scan(&id, &name, &efficacy, &useMethod, &caution, &sideEffects); err != nil {
			return nil, err
		}
		out[id] = Drug{Name: name, Efficacy: efficacy, UseMethod: useMethod, CautionInfo: caution, SideEffects: sideEffects}.IndexText()
	}
	return out, rows.Err()
}

func (s *pgStore) LoadDiseaseTexts(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, symptoms, causes, treatment FROM diseases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, name, symptoms, causes, treatment string
		if err := rows.Scan(&id, &name, &symptoms, &causes, &treatment); err != nil {
			return nil, err
		}
		out[id] = Disease{Name: name, Symptoms: symptoms, Causes: causes, Treatment: treatment}.SearchableText()
	}
	return out, rows.Err()
}

func (s *pgStore) AppendSearchLog(ctx context.Context, l SearchLog) error {
	query := l.Query
	if len(query) > 500 {
		query = query[:500]
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO search_logs (query, result_count, response_time_ms, created_at) VALUES ($1,$2,$3,$4)`,
		query, l.ResultCount, l.ResponseTimeMS, orNow(l.CreatedAt))
	return err
}

func (s *pgStore) Stats(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	var drugs, diseases, searches int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM drugs`).Scan(&drugs); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM diseases`).Scan(&diseases); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM search_logs`).Scan(&searches); err != nil {
		return nil, err
	}
	out["drugs"] = drugs
	out["diseases"] = diseases
	out["searches"] = searches
	return out, nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (s *pgStore) Close() { s.pool.Close() }
