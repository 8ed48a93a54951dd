package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

// Fetcher supplies the per-request data snapshots the core consumes. Both
// calls return point-in-time snapshots; retry and timeout policy belong to
// the implementation, not to the orchestrator.
type Fetcher interface {
	FetchHistory(ctx context.Context, learnerID string) (*model.History, error)
	FetchCatalog(ctx context.Context, itemType model.ItemType) ([]model.Item, error)
}

// ProfileScorer is the similarity-path contract. An empty result map (with
// nil error) means the learner profile is degenerate and the cold-start
// path should take over.
type ProfileScorer interface {
	Score(history *model.History, catalog []model.Item, excluded map[string]struct{}) (map[string]float64, error)
}

// FallbackScorer is the cold-start-path contract. It must cover every
// non-excluded catalog item.
type FallbackScorer interface {
	Score(history *model.History, catalog []model.Item, excluded map[string]struct{}) map[string]float64
}

// Options are the per-request knobs of Recommend.
type Options struct {
	// IncludeCompleted keeps items the learner already completed in the
	// candidate set (repeat-practice recommendations).
	IncludeCompleted bool
	// ItemType restricts the catalog to tests or lectures; ItemTypeAny
	// selects everything.
	ItemType model.ItemType
}

// Orchestrator drives the recommendation pipeline: fetch snapshots, pick a
// scoring path, normalize, merge, rank and truncate. It is stateless
// across requests; given identical snapshots and configuration it always
// produces the identical list.
type Orchestrator struct {
	fetcher    Fetcher
	similarity ProfileScorer
	coldStart  FallbackScorer
	cfg        Config
}

// Option customizes an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithSimilarityScorer swaps the similarity-path implementation.
func WithSimilarityScorer(s ProfileScorer) Option {
	return func(o *Orchestrator) { o.similarity = s }
}

// WithColdStartScorer swaps the cold-start-path implementation.
func WithColdStartScorer(s FallbackScorer) Option {
	return func(o *Orchestrator) { o.coldStart = s }
}

// New validates cfg and builds an orchestrator with the default scorers.
func New(fetcher Fetcher, cfg Config, opts ...Option) (*Orchestrator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommend config: %w", err)
	}
	o := &Orchestrator{
		fetcher:    fetcher,
		similarity: NewSimilarityScorer(),
		coldStart:  NewColdStartScorer(cfg),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Recommend produces the bounded, deduplicated, ranked list for one
// learner. A fetch failure is terminal for the request: no partial list is
// ever built from partial data.
func (o *Orchestrator) Recommend(ctx context.Context, learnerID string, count int, opts Options) (*model.RecommendationList, error) {
	if count <= 0 || count > o.cfg.MaxCount {
		count = o.cfg.MaxCount
	}

	history, catalog, err := o.fetchSnapshots(ctx, learnerID, opts.ItemType)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, ErrInsufficientCatalog
	}

	excluded := map[string]struct{}{}
	if !opts.IncludeCompleted {
		excluded = history.CompletedSet()
	}

	var ranked []model.Candidate
	if n := history.InteractionCount(); n > 0 && n >= o.cfg.ColdStartThreshold {
		simScores, err := o.similarity.Score(history, catalog, excluded)
		if err != nil {
			return nil, err
		}
		if len(simScores) > 0 {
			ranked = o.mergeSimilarity(simScores, history, catalog, excluded, count)
		}
	}
	if ranked == nil {
		// Sparse history or degenerate profile: cold start exclusively.
		cold := normalize(o.coldStart.Score(history, catalog, excluded))
		ranked = rank(cold, model.ProvenanceColdStart)
	}

	return buildList(learnerID, ranked, catalog, count), nil
}

// fetchSnapshots retrieves history and catalog concurrently. Both must
// succeed; the history error wins when both fail so repeated calls report
// deterministically.
func (o *Orchestrator) fetchSnapshots(ctx context.Context, learnerID string, itemType model.ItemType) (*model.History, []model.Item, error) {
	var (
		wg         sync.WaitGroup
		history    *model.History
		catalog    []model.Item
		historyErr error
		catalogErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		history, historyErr = o.fetcher.FetchHistory(ctx, learnerID)
	}()
	go func() {
		defer wg.Done()
		catalog, catalogErr = o.fetcher.FetchCatalog(ctx, itemType)
	}()
	wg.Wait()

	if historyErr != nil {
		return nil, nil, historyErr
	}
	if catalogErr != nil {
		return nil, nil, catalogErr
	}
	return history, catalog, nil
}

// mergeSimilarity ranks the similarity path's candidates, optionally
// blending in the cold-start score for items both paths cover, and fills
// any remaining slots with cold-start-only candidates.
func (o *Orchestrator) mergeSimilarity(simScores map[string]float64, history *model.History, catalog []model.Item, excluded map[string]struct{}, count int) []model.Candidate {
	sim := normalize(simScores)

	needFill := len(sim) < count
	needBlend := o.cfg.BlendWeight < 1

	var cold map[string]float64
	if needFill || needBlend {
		cold = normalize(o.coldStart.Score(history, catalog, excluded))
	}

	var candidates []model.Candidate
	if needBlend {
		w := o.cfg.BlendWeight
		for id, s := range sim {
			c, both := cold[id]
			if both {
				candidates = append(candidates, model.Candidate{
					ItemID:     id,
					Score:      w*s + (1-w)*c,
					Provenance: model.ProvenanceBlended,
				})
			} else {
				candidates = append(candidates, model.Candidate{
					ItemID: id, Score: s, Provenance: model.ProvenanceSimilarity,
				})
			}
		}
		sortCandidates(candidates)
	} else {
		candidates = rank(sim, model.ProvenanceSimilarity)
	}

	if needFill {
		for _, c := range rank(cold, model.ProvenanceColdStart) {
			if _, seen := sim[c.ItemID]; seen {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// normalize rescales a score map onto [0,1] with min-max normalization so
// heterogeneous paths become comparable. A constant map collapses to 1.0:
// every candidate is equally preferred and the ID tie-break decides.
func normalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}
	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make(map[string]float64, len(scores))
	if max == min {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}
	for id, s := range scores {
		out[id] = (s - min) / (max - min)
	}
	return out
}

// rank turns a score map into candidates sorted by score descending, ties
// broken by item ID ascending so repeated calls produce identical order.
func rank(scores map[string]float64, prov model.Provenance) []model.Candidate {
	candidates := make([]model.Candidate, 0, len(scores))
	for id, s := range scores {
		candidates = append(candidates, model.Candidate{ItemID: id, Score: s, Provenance: prov})
	}
	sortCandidates(candidates)
	return candidates
}

func sortCandidates(candidates []model.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})
}

// buildList resolves ranked candidates against the catalog snapshot,
// deduplicates (first occurrence wins) and truncates to count.
func buildList(learnerID string, ranked []model.Candidate, catalog []model.Item, count int) *model.RecommendationList {
	byID := make(map[string]*model.Item, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	list := &model.RecommendationList{
		LearnerID: learnerID,
		Items:     make([]model.Recommendation, 0, count),
	}
	seen := make(map[string]struct{}, count)
	for _, c := range ranked {
		if len(list.Items) == count {
			break
		}
		if _, dup := seen[c.ItemID]; dup {
			continue
		}
		item, ok := byID[c.ItemID]
		if !ok {
			continue // candidate must reference the snapshot
		}
		seen[c.ItemID] = struct{}{}
		list.Items = append(list.Items, model.Recommendation{
			ItemID:     c.ItemID,
			Name:       item.Name,
			Type:       item.Type,
			Score:      c.Score,
			Provenance: c.Provenance,
		})
	}
	return list
}
