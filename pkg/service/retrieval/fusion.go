package retrieval

import (
	"sort"
	"strings"

	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

// Reciprocal Rank Fusion parameters
const (
	rrfK          = 60.0
	vectorWeight  = 0.6
	keywordWeight = 0.4
)

// Rerank boost factors: exact overlap with the question outweighs the answer
const (
	questionTermBoost   = 0.5
	answerTermBoost     = 0.25
	questionPhraseBoost = 0.5
	answerPhraseBoost   = 0.25
)

type rankedEntry struct {
	entry *model.KnowledgeEntry
	score float64
}

// fuse combines the vector and keyword rankings with Reciprocal Rank Fusion:
// each list contributes weight/(k+rank+1) per entry, summed across lists.
// Entries present in both lists are tagged as hybrid matches.
func fuse(vectorRanked, keywordRanked []rankedEntry) []model.SearchResult {
	type fused struct {
		entry     *model.KnowledgeEntry
		score     float64
		matchType types.MatchType
	}
	byID := make(map[types.EntryID]*fused)
	var order []types.EntryID

	contribute := func(ranked []rankedEntry, weight float64, matchType types.MatchType) {
		for rank, r := range ranked {
			f, ok := byID[r.entry.ID]
			if !ok {
				f = &fused{entry: r.entry, matchType: matchType}
				byID[r.entry.ID] = f
				order = append(order, r.entry.ID)
			} else if f.matchType != matchType {
				f.matchType = types.MatchHybrid
			}
			f.score += weight / (rrfK + float64(rank) + 1)
		}
	}

	contribute(vectorRanked, vectorWeight, types.MatchVector)
	contribute(keywordRanked, keywordWeight, types.MatchKeyword)

	results := make([]model.SearchResult, 0, len(order))
	for _, id := range order {
		f := byID[id]
		results = append(results, model.SearchResult{
			EntryID:   f.entry.ID,
			Question:  f.entry.Question,
			Answer:    f.entry.Answer,
			Category:  f.entry.Category,
			Score:     f.score,
			MatchType: f.matchType,
		})
	}
	return results
}

// rerank boosts fused scores by exact-term and exact-phrase overlap between
// the query and each result, then sorts descending by score. Ties keep the
// fusion order so the output is deterministic.
func rerank(query string, results []model.SearchResult) []model.SearchResult {
	queryTerms := termSet(query)
	phrase := strings.ToLower(strings.TrimSpace(query))

	for i := range results {
		boost := 1.0
		boost += questionTermBoost * overlapRatio(queryTerms, results[i].Question)
		boost += answerTermBoost * overlapRatio(queryTerms, results[i].Answer)

		if phrase != "" {
			if strings.Contains(strings.ToLower(results[i].Question), phrase) {
				boost += questionPhraseBoost
			} else if strings.Contains(strings.ToLower(results[i].Answer), phrase) {
				boost += answerPhraseBoost
			}
		}

		results[i].Score *= boost
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// overlapRatio returns the fraction of query terms present in the text
func overlapRatio(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	textTerms := termSet(text)
	matched := 0
	for t := range queryTerms {
		if _, ok := textTerms[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
