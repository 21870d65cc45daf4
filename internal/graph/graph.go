// Package graph implements the property-graph query service (§4.11):
// drug/disease/symptom relations over the three node labels (Drug,
// Disease, Symptom) and four relation types (INTERACTS_WITH, TREATS,
// RELIEVES, SIMILAR_TO), plus the result-set enrichment step that
// formats a "[약물 관계 정보]" block for the answer-LLM prompt context.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"retrievalcore/internal/persistence/databases"
)

const (
	LabelDrug    = "Drug"
	LabelDisease = "Disease"
	LabelSymptom = "Symptom"

	RelInteractsWith = "INTERACTS_WITH"
	RelTreats        = "TREATS"
	RelRelieves      = "RELIEVES"
	RelSimilarTo     = "SIMILAR_TO"
)

// Interaction is one drug-drug INTERACTS_WITH relation.
type Interaction struct {
	DrugID      string
	Type        string
	Severity    int
	Description string
}

// RelatedDrug is one related-drug result, scored either from a
// SIMILAR_TO similarity_score or from 1 − severity/5 of an interaction.
type RelatedDrug struct {
	DrugID string
	Score  float64
	Reason string // "similar" or "interacts"
}

// DiseaseDrug is one drug recommended for a disease, ordered by
// efficacy_level (primary < secondary < other).
type DiseaseDrug struct {
	DrugID        string
	EfficacyLevel string
	Evidence      string
}

// SymptomDrug is one drug recommended for a symptom, ordered by
// effectiveness descending.
type SymptomDrug struct {
	DrugID        string
	Effectiveness float64
}

// GraphView is a node/edge pair list suitable for visualization.
type GraphView struct {
	Nodes []databases.Node
	Edges []struct {
		Source string
		Rel    string
		Target string
	}
}

// Service implements the §4.11 queries and result-set enrichment over
// a backing property-graph store.
type Service struct {
	DB databases.GraphDB
}

// GetDrugInteractions returns a drug's interactions ordered by
// severity descending.
func (s *Service) GetDrugInteractions(ctx context.Context, drugID string) ([]Interaction, error) {
	edges, err := s.DB.Edges(ctx, drugID, RelInteractsWith)
	if err != nil {
		return nil, fmt.Errorf("graph: interactions for %s: %w", drugID, err)
	}
	out := make([]Interaction, 0, len(edges))
	for _, e := range edges {
		out = append(out, Interaction{
			DrugID:      e.Target,
			Type:        stringProp(e.Props, "type"),
			Severity:    intProp(e.Props, "severity"),
			Description: stringProp(e.Props, "description"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out, nil
}

// GetRelatedDrugs unions SIMILAR_TO and INTERACTS_WITH neighbors,
// scoring each by similarity_score or 1 − severity/5, deduplicated and
// truncated to limit.
func (s *Service) GetRelatedDrugs(ctx context.Context, drugID string, limit int) ([]RelatedDrug, error) {
	if limit <= 0 {
		limit = 10
	}
	byID := make(map[string]RelatedDrug)

	similar, err := s.DB.Edges(ctx, drugID, RelSimilarTo)
	if err != nil {
		return nil, fmt.Errorf("graph: similar drugs for %s: %w", drugID, err)
	}
	for _, e := range similar {
		byID[e.Target] = RelatedDrug{DrugID: e.Target, Score: floatProp(e.Props, "similarity_score"), Reason: "similar"}
	}

	interacting, err := s.DB.Edges(ctx, drugID, RelInteractsWith)
	if err != nil {
		return nil, fmt.Errorf("graph: interacting drugs for %s: %w", drugID, err)
	}
	for _, e := range interacting {
		if _, ok := byID[e.Target]; ok {
			continue
		}
		severity := intProp(e.Props, "severity")
		byID[e.Target] = RelatedDrug{DrugID: e.Target, Score: 1 - float64(severity)/5, Reason: "interacts"}
	}

	out := make([]RelatedDrug, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var efficacyRank = map[string]int{"primary": 0, "secondary": 1}

// GetDrugsForDisease returns drugs TREATS-linked to a disease, ordered
// by efficacy_level (primary, then secondary, then anything else).
func (s *Service) GetDrugsForDisease(ctx context.Context, diseaseID string, limit int) ([]DiseaseDrug, error) {
	if limit <= 0 {
		limit = 10
	}
	edges, err := s.DB.Edges(ctx, diseaseID, RelTreats)
	if err != nil {
		return nil, fmt.Errorf("graph: drugs for disease %s: %w", diseaseID, err)
	}
	out := make([]DiseaseDrug, 0, len(edges))
	for _, e := range edges {
		out = append(out, DiseaseDrug{
			DrugID:        e.Target,
			EfficacyLevel: stringProp(e.Props, "efficacy_level"),
			Evidence:      stringProp(e.Props, "evidence"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, oki := efficacyRank[out[i].EfficacyLevel]
		rj, okj := efficacyRank[out[j].EfficacyLevel]
		if !oki {
			ri = 2
		}
		if !okj {
			rj = 2
		}
		return ri < rj
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetDrugsForSymptom matches a symptom node by exact or case-folded
// name and returns its RELIEVES-linked drugs ordered by effectiveness
// descending.
func (s *Service) GetDrugsForSymptom(ctx context.Context, name string, limit int) ([]SymptomDrug, error) {
	if limit <= 0 {
		limit = 10
	}
	edges, err := s.DB.Edges(ctx, "symptom:"+name, RelRelieves)
	if err != nil {
		return nil, fmt.Errorf("graph: drugs for symptom %s: %w", name, err)
	}
	if folded := strings.ToLower(name); len(edges) == 0 && folded != name {
		edges, err = s.DB.Edges(ctx, "symptom:"+folded, RelRelieves)
		if err != nil {
			return nil, fmt.Errorf("graph: drugs for symptom %s: %w", name, err)
		}
	}
	out := make([]SymptomDrug, 0, len(edges))
	for _, e := range edges {
		out = append(out, SymptomDrug{DrugID: e.Target, Effectiveness: floatProp(e.Props, "effectiveness")})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Effectiveness > out[j].Effectiveness })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetDrugGraph returns nodes and edges reachable from a drug up to the
// given depth, for visualization.
func (s *Service) GetDrugGraph(ctx context.Context, drugID string, depth int) (GraphView, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	view := GraphView{}
	visited := map[string]bool{}
	frontier := []string{drugID}
	rels := []string{RelInteractsWith, RelTreats, RelRelieves, RelSimilarTo}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			if visited[id] {
				continue
			}
			visited[id] = true
			if n, ok := s.DB.GetNode(ctx, id); ok {
				view.Nodes = append(view.Nodes, n)
			}
			for _, rel := range rels {
				edges, err := s.DB.Edges(ctx, id, rel)
				if err != nil {
					return view, fmt.Errorf("graph: edges for %s/%s: %w", id, rel, err)
				}
				for _, e := range edges {
					view.Edges = append(view.Edges, struct {
						Source string
						Rel    string
						Target string
					}{Source: id, Rel: rel, Target: e.Target})
					if !visited[e.Target] {
						next = append(next, e.Target)
					}
				}
			}
		}
		frontier = next
	}
	return view, nil
}

// GetCrossInteractions returns pairwise interactions among a set of
// drugs — every INTERACTS_WITH edge whose target is also in the set.
func (s *Service) GetCrossInteractions(ctx context.Context, drugIDs []string) ([]Interaction, error) {
	if len(drugIDs) < 2 {
		return nil, nil
	}
	in := make(map[string]bool, len(drugIDs))
	for _, id := range drugIDs {
		in[id] = true
	}
	var out []Interaction
	for _, id := range drugIDs {
		edges, err := s.DB.Edges(ctx, id, RelInteractsWith)
		if err != nil {
			return nil, fmt.Errorf("graph: cross interactions for %s: %w", id, err)
		}
		for _, e := range edges {
			if in[e.Target] {
				out = append(out, Interaction{
					DrugID:      id,
					Type:        stringProp(e.Props, "type"),
					Severity:    intProp(e.Props, "severity"),
					Description: stringProp(e.Props, "description"),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out, nil
}

// Enrich implements retrieve.GraphEnricher: for the first 3 drugs in a
// result set, fetch up to 3 related drugs each (deduplicated against
// the input set); pairwise interactions across the set; the formatted
// block is appended verbatim to the prompt context.
func (s *Service) Enrich(ctx context.Context, drugIDs []string) (string, error) {
	if len(drugIDs) == 0 {
		return "", nil
	}
	in := make(map[string]bool, len(drugIDs))
	for _, id := range drugIDs {
		in[id] = true
	}

	var b strings.Builder
	limit := len(drugIDs)
	if limit > 3 {
		limit = 3
	}
	for _, id := range drugIDs[:limit] {
		related, err := s.GetRelatedDrugs(ctx, id, 5)
		if err != nil {
			return "", err
		}
		n := 0
		for _, r := range related {
			if in[r.DrugID] {
				continue
			}
			if n == 0 {
				fmt.Fprintf(&b, "- %s 관련 약물: ", id)
			} else {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s(%.2f)", r.DrugID, r.Score)
			n++
			if n >= 3 {
				break
			}
		}
		if n > 0 {
			b.WriteString("\n")
		}
	}

	cross, err := s.GetCrossInteractions(ctx, drugIDs)
	if err != nil {
		return "", err
	}
	for _, c := range cross {
		fmt.Fprintf(&b, "- %s ↔ %s 상호작용(심각도 %d): %s\n", c.DrugID, c.Description, c.Severity, c.Type)
	}
	return b.String(), nil
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
