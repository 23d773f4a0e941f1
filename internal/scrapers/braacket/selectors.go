package braacket

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors describes where things live on a braacket page. Braacket changes its markup
// without notice, so all of it can be overridden from config.
type Selectors struct {
	// index of the <section> holding the ranking table
	RankingSection  int    `json:"ranking_section"`
	RankingRows     string `json:"ranking_rows"`
	PlayerLink      string `json:"player_link"`
	CharacterImages string `json:"character_images"`
	// attributes tried in order on every character image, the first non-empty one wins
	CharacterAttributes []string `json:"character_attributes"`

	// index of the <section> holding the pagination widget
	PaginationSection int    `json:"pagination_section"`
	NextButtonGroup   string `json:"next_button_group"`
	NextButtonIndex   int    `json:"next_button_index"`
	NextButton        string `json:"next_button"`
	TotalGroup        string `json:"total_group"`
	TotalGroupIndex   int    `json:"total_group_index"`
	TotalAddon        string `json:"total_addon"`
	PageAddon         string `json:"page_addon"`

	MatchRows     string `json:"match_rows"`
	MatchResult   string `json:"match_result"`
	MatchOpponent string `json:"match_opponent"`
	// text of the result cell for a lost match
	LossLiteral string `json:"loss_literal"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		RankingSection:      4,
		RankingRows:         ".table-hover tbody tr",
		PlayerLink:          "td.ellipsis a",
		CharacterImages:     "td.ellipsis span.game_characters img",
		CharacterAttributes: []string{"data-original-title", "alt", "title"},

		PaginationSection: 5,
		NextButtonGroup:   "div.input-group-btn",
		NextButtonIndex:   1,
		NextButton:        "a.btn.btn-default",
		TotalGroup:        "div.input-group.form-group",
		TotalGroupIndex:   2,
		TotalAddon:        "div.input-group-addon.my-input-group-addon",
		PageAddon:         "div.input-group.form-group div.input-group-addon",

		MatchRows:     "table.my-table-show_max tbody tr",
		MatchResult:   "td.ellipsis span.text-bold.number-danger",
		MatchOpponent: "td.ellipsis a[href^='/league/']",
		LossLiteral:   "Lose",
	}
}

// CharacterStrategy extracts a character identifier from an image element, returning
// "" when it cannot.
type CharacterStrategy func(img *goquery.Selection) string

func AttributeStrategy(attr string) CharacterStrategy {
	return func(img *goquery.Selection) string {
		return strings.TrimSpace(img.AttrOr(attr, ""))
	}
}

// Parser runs the extractors against pages using a fixed set of selectors.
type Parser struct {
	sel        Selectors
	strategies []CharacterStrategy
}

func NewParser(sel Selectors) Parser {
	strategies := make([]CharacterStrategy, len(sel.CharacterAttributes))
	for i, attr := range sel.CharacterAttributes {
		strategies[i] = AttributeStrategy(attr)
	}
	return Parser{sel: sel, strategies: strategies}
}

func DefaultParser() Parser {
	return NewParser(DefaultSelectors())
}

// WithStrategies returns a copy of the parser that resolves characters with the given strategies.
func (p Parser) WithStrategies(strategies ...CharacterStrategy) Parser {
	p.strategies = strategies
	return p
}

func (p Parser) Selectors() Selectors {
	return p.sel
}

// resolveCharacters runs every image in `sel` through the strategy list, images that
// resolve to nothing are skipped and repeats are dropped.
func (p Parser) resolveCharacters(sel *goquery.Selection, seen map[string]struct{}, out []string) []string {
	sel.Each(func(_ int, img *goquery.Selection) {
		for _, strategy := range p.strategies {
			name := strategy(img)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
			return
		}
	})
	return out
}
