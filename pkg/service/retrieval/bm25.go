package retrieval

import "math"

// BM25 parameters. The average document length is a fixed estimate rather
// than a corpus statistic; see DESIGN.md for the trade-off.
const (
	bm25K1        = 1.5
	bm25B         = 0.75
	bm25AvgDocLen = 100.0
)

// bm25Corpus scores documents against a query using Okapi BM25.
// IDF is computed over the candidate set passed to newBM25Corpus.
type bm25Corpus struct {
	docs    [][]string
	docFreq map[string]int
	numDocs int
}

func newBM25Corpus(documents []string) *bm25Corpus {
	c := &bm25Corpus{
		docFreq: make(map[string]int),
		numDocs: len(documents),
	}
	for _, doc := range documents {
		terms := tokenize(doc)
		c.docs = append(c.docs, terms)

		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			c.docFreq[t]++
		}
	}
	return c
}

// score computes the BM25 score of document index i against the query terms.
// Terms absent from the document contribute 0.
func (c *bm25Corpus) score(i int, queryTerms []string) float64 {
	doc := c.docs[i]
	docLen := float64(len(doc))

	termFreq := make(map[string]int, len(doc))
	for _, t := range doc {
		termFreq[t]++
	}

	var total float64
	for _, term := range queryTerms {
		tf := float64(termFreq[term])
		if tf == 0 {
			continue
		}
		df := float64(c.docFreq[term])
		idf := math.Log(1 + (float64(c.numDocs)-df+0.5)/(df+0.5))
		norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*docLen/bm25AvgDocLen))
		total += idf * norm
	}
	return total
}
