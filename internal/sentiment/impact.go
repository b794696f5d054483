package sentiment

import (
	"math"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

const (
	// ImpactBoost multiplies the weight of macro headlines.
	ImpactBoost = 3.0
	// Gamma is the exponent applied to the confidence margin.
	Gamma = 1.5
	// MinMargin keeps a perfectly ambiguous document from weighing zero.
	MinMargin = 1e-3
)

// DefaultImpactKeywords are the central bank, rates and crisis terms that mark
// a high-impact macro headline.
var DefaultImpactKeywords = []string{
	"powell",
	"federal reserve",
	"fed",
	"rate hike",
	"rate cut",
	"rate hikes",
	"rate cuts",
	"interest rates",
	"monetary policy",
	"qe",
	"quantitative easing",
	"taper",
	"central bank",
	"central banks",
	"inflation shock",
	"stagflation",
	"recession",
	"crisis",
	"credit crunch",
	"de-dollarization",
	"brics",
}

// ImpactWeighter scores how much a document should pull on the index from
// its sentiment confidence and whether it mentions a macro keyword. Keyword
// matching is a case-insensitive substring test run through a single
// Aho-Corasick pass.
type ImpactWeighter struct {
	mu       sync.Mutex // Matcher.Match mutates internal state
	matcher  *ahocorasick.Matcher
	keywords []string
}

// NewImpactWeighter builds a weighter for the given keyword list. Blank and
// repeated keywords are ignored.
func NewImpactWeighter(keywords []string) *ImpactWeighter {
	seen := make(map[string]struct{}, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		normalized = append(normalized, kw)
	}

	w := &ImpactWeighter{keywords: normalized}
	if len(normalized) > 0 {
		w.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return w
}

// Keywords returns the normalized keyword list.
func (w *ImpactWeighter) Keywords() []string {
	out := make([]string, len(w.keywords))
	copy(out, w.keywords)
	return out
}

// MatchedKeywords returns the keywords found in text, in list order.
func (w *ImpactWeighter) MatchedKeywords(text string) []string {
	if w.matcher == nil || text == "" {
		return nil
	}

	lowered := []byte(strings.ToLower(text))
	w.mu.Lock()
	hits := w.matcher.Match(lowered)
	w.mu.Unlock()
	if len(hits) == 0 {
		return nil
	}

	found := make([]bool, len(w.keywords))
	for _, idx := range hits {
		if idx >= 0 && idx < len(found) {
			found[idx] = true
		}
	}
	matched := make([]string, 0, len(hits))
	for i, ok := range found {
		if ok {
			matched = append(matched, w.keywords[i])
		}
	}
	return matched
}

// IsHighImpact reports whether text mentions any keyword.
func (w *ImpactWeighter) IsHighImpact(text string) bool {
	return len(w.MatchedKeywords(text)) > 0
}

// Weight returns the impact weight of a scored document. It is always > 0.
func (w *ImpactWeighter) Weight(score Score, text string) float64 {
	return ImpactWeight(score, w.IsHighImpact(text))
}

// ImpactWeight is max(margin, MinMargin)^Gamma, tripled for macro headlines.
func ImpactWeight(score Score, highImpact bool) float64 {
	base := score.Margin()
	if math.IsNaN(base) || base < MinMargin {
		base = MinMargin
	}

	boost := 1.0
	if highImpact {
		boost = ImpactBoost
	}
	return math.Pow(base, Gamma) * boost
}

// EffectiveWeight combines recency and impact into the aggregation weight.
func EffectiveWeight(recency, impact float64) float64 {
	return recency * impact
}
