package retrieval

import (
	"sort"
	"strings"
)

// SynonymTable expands query terms with domain synonyms. Lookup is symmetric:
// a term maps to its synonyms and a synonym maps back to its terms.
type SynonymTable struct {
	forward map[string][]string
	reverse map[string][]string
	// phrases holds multi-word synonym keys in sorted order so that
	// expansion output is deterministic
	phrases []string
}

// defaultSynonyms is the built-in merchant-services vocabulary
var defaultSynonyms = map[string][]string{
	"bps":          {"basis points"},
	"chargeback":   {"dispute", "reversal"},
	"residual":     {"commission", "payout"},
	"interchange":  {"processing fee", "card fee"},
	"merchant":     {"mid", "account"},
	"agent":        {"rep", "agency"},
	"pci":          {"compliance"},
	"ach":          {"bank transfer"},
	"underwriting": {"approval", "risk review"},
	"terminal":     {"pos", "reader"},
	"statement":    {"invoice"},
	"processor":    {"acquirer"},
}

// NewSynonymTable builds a symmetric synonym table. The provided entries are
// merged over the built-in domain defaults.
func NewSynonymTable(extra map[string][]string) *SynonymTable {
	t := &SynonymTable{
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
	}
	t.merge(defaultSynonyms)
	t.merge(extra)

	for phrase := range t.reverse {
		if strings.Contains(phrase, " ") {
			t.phrases = append(t.phrases, phrase)
		}
	}
	sort.Strings(t.phrases)

	return t
}

func (t *SynonymTable) merge(entries map[string][]string) {
	for term, syns := range entries {
		term = strings.ToLower(term)
		for _, syn := range syns {
			syn = strings.ToLower(syn)
			t.forward[term] = append(t.forward[term], syn)
			t.reverse[syn] = append(t.reverse[syn], term)
		}
	}
}

// Expand returns the query text extended with synonyms of its terms and with
// reverse-lookup terms of any synonym phrases the query contains. The result
// is deterministic for identical inputs.
func (t *SynonymTable) Expand(query string) string {
	lower := strings.ToLower(query)
	var extra []string
	seen := make(map[string]struct{})

	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		extra = append(extra, term)
	}

	for _, token := range tokenize(query) {
		for _, syn := range t.forward[token] {
			add(syn)
		}
		for _, term := range t.reverse[token] {
			add(term)
		}
	}

	// Multi-word synonyms cannot match token-wise; check phrase containment
	for _, phrase := range t.phrases {
		if strings.Contains(lower, phrase) {
			for _, term := range t.reverse[phrase] {
				add(term)
			}
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
