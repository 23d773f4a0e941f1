package braacket

import (
	"slices"

	"braacket-bot/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// LossCount is the number of recorded losses against a single opponent.
type LossCount struct {
	Opponent string `json:"opponent"`
	Count    int    `json:"count"`
}

// ExtractLossOpponents returns the opponent of every lost match on a player's page,
// in document order. An opponent appears once per loss.
func (p Parser) ExtractLossOpponents(doc *goquery.Document) []string {
	var opponents []string
	doc.Find(p.sel.MatchRows).Each(func(_ int, row *goquery.Selection) {
		result := htmlutil.Text(row.Find(p.sel.MatchResult))
		if result != p.sel.LossLiteral {
			return
		}
		opponent := htmlutil.Text(row.Find(p.sel.MatchOpponent))
		if opponent == "" {
			return
		}
		opponents = append(opponents, opponent)
	})
	return opponents
}

// ResolveOpponentCharacters returns every character the opponent was seen playing on the
// page, deduplicated, in first-seen order.
func (p Parser) ResolveOpponentCharacters(doc *goquery.Document, opponent string) []string {
	seen := map[string]struct{}{}
	var out []string
	doc.Find(p.sel.MatchRows).Each(func(_ int, row *goquery.Selection) {
		if htmlutil.Text(row.Find(p.sel.MatchOpponent)) != opponent {
			return
		}
		out = p.resolveCharacters(row.Find(p.sel.CharacterImages), seen, out)
	})
	return out
}

// AggregateLosses counts the occurrences of each opponent, sorted by count descending.
// Ties keep the order in which the opponents were first seen.
func AggregateLosses(opponents []string) []LossCount {
	counts := make([]LossCount, len(opponents))
	for i, opponent := range opponents {
		counts[i] = LossCount{Opponent: opponent, Count: 1}
	}
	return MergeLossCounts(counts)
}

// MergeLossCounts sums the counts of repeated opponents with the same ordering rules as
// AggregateLosses, which makes it safe to apply to already aggregated counts.
func MergeLossCounts(counts []LossCount) []LossCount {
	index := map[string]int{}
	var out []LossCount
	for _, c := range counts {
		i, ok := index[c.Opponent]
		if !ok {
			index[c.Opponent] = len(out)
			out = append(out, c)
			continue
		}
		out[i].Count += c.Count
	}
	slices.SortStableFunc(out, func(a, b LossCount) int {
		return b.Count - a.Count
	})
	return out
}
