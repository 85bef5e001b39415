package retrieval

import (
	"testing"

	"github.com/m-mizutani/gt"
)

func TestBM25AbsentTermsScoreZero(t *testing.T) {
	corpus := newBM25Corpus([]string{
		"residual payouts are sent monthly",
		"chargebacks reverse a settled transaction",
	})

	gt.Number(t, corpus.score(0, tokenize("terminal paper"))).Equal(0)
}

func TestBM25MatchingDocumentScoresHigher(t *testing.T) {
	corpus := newBM25Corpus([]string{
		"residual payouts are sent monthly to agents",
		"chargebacks reverse a settled transaction",
		"terminal deployment takes three business days",
	})
	query := tokenize("when are residual payouts sent")

	matching := corpus.score(0, query)
	other := corpus.score(1, query)

	gt.Number(t, matching).Greater(0)
	gt.Number(t, matching).Greater(other)
}

func TestBM25RareTermOutweighsCommonTerm(t *testing.T) {
	// "fee" appears in every document, "interchange" in one; the rare term
	// must dominate the score of its document.
	corpus := newBM25Corpus([]string{
		"interchange fee categories by card brand",
		"monthly statement fee breakdown",
		"chargeback fee per dispute",
	})

	rare := corpus.score(0, tokenize("interchange"))
	common := corpus.score(1, tokenize("fee"))

	gt.Number(t, rare).Greater(common)
}

func TestBM25TermFrequencySaturates(t *testing.T) {
	corpus := newBM25Corpus([]string{
		"residual",
		"residual residual residual residual residual residual residual residual",
	})
	query := tokenize("residual")

	once := corpus.score(0, query)
	many := corpus.score(1, query)

	gt.Number(t, many).Greater(once)
	// k1 bounds the term-frequency contribution
	gt.Number(t, many).Less(once * (bm25K1 + 1))
}
