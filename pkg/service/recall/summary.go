package recall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stratospay/delphi/pkg/domain/model"
)

// defaultDomainKeywords maps merchant-services vocabulary to importance
// multipliers. The same table drives topic extraction for summaries.
var defaultDomainKeywords = map[string]float64{
	"residual":     1.5,
	"chargeback":   1.5,
	"merchant":     1.3,
	"bps":          1.4,
	"interchange":  1.4,
	"settlement":   1.3,
	"pci":          1.3,
	"ach":          1.2,
	"terminal":     1.2,
	"statement":    1.2,
	"agent":        1.2,
	"fee":          1.2,
	"underwriting": 1.3,
}

// summarize collapses an older message window into one synthetic system
// message: a count of replaced turns plus the key topics extracted by domain
// keyword matching. No model call is involved, so the result is deterministic.
func (s *Service) summarize(older []model.Message) model.Message {
	counts := make(map[string]int)
	for i := range older {
		lower := strings.ToLower(older[i].Content)
		for keyword := range s.keywords {
			if strings.Contains(lower, keyword) {
				counts[keyword]++
			}
		}
	}

	topics := make([]string, 0, len(counts))
	for keyword := range counts {
		topics = append(topics, keyword)
	}
	// Most frequent first; alphabetical tie-break keeps output deterministic
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > 5 {
		topics = topics[:5]
	}

	text := fmt.Sprintf("Summary of %d earlier messages in this conversation.", len(older))
	if len(topics) > 0 {
		text += " Key topics discussed: " + strings.Join(topics, ", ") + "."
	}

	msg := model.NewSystemMessage(text)
	// The synthetic message stands in for the oldest turn it replaces
	msg.Timestamp = older[0].Timestamp
	return msg
}
