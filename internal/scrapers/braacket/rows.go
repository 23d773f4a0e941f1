package braacket

import (
	"fmt"
	"strings"

	"braacket-bot/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// PlayerRow is a single row of the ranking table.
type PlayerRow struct {
	// Index is the 0-based position of the row within its page.
	Index      int
	Name       string
	Characters []string
	// URL is the absolute url of the player's page, it is empty if the row has no link.
	URL string
}

func (p Parser) rankingRows(doc *goquery.Document) (*goquery.Selection, error) {
	section := doc.Find("section").Eq(p.sel.RankingSection)
	if section.Length() == 0 {
		return nil, fmt.Errorf("%w: ranking section %d is missing", ErrParse, p.sel.RankingSection)
	}
	return section.Find(p.sel.RankingRows), nil
}

func (p Parser) parseRow(doc *goquery.Document, index int, row *goquery.Selection) PlayerRow {
	link := row.Find(p.sel.PlayerLink).First()

	out := PlayerRow{
		Index:      index,
		Name:       htmlutil.Text(link),
		Characters: p.resolveCharacters(row.Find(p.sel.CharacterImages), map[string]struct{}{}, nil),
	}
	href, ok := link.Attr("href")
	if ok && strings.TrimSpace(href) != "" {
		resolved, err := htmlutil.ResolveHref(doc.Url, href)
		if err == nil {
			out.URL = resolved
		}
	}
	return out
}

// ExtractPlayerAtCoordinate parses the row at `rowIndex` (0-based) of a ranking page.
func (p Parser) ExtractPlayerAtCoordinate(doc *goquery.Document, rowIndex int) (PlayerRow, error) {
	rows, err := p.rankingRows(doc)
	if err != nil {
		return PlayerRow{}, err
	}
	if rowIndex < 0 || rowIndex >= rows.Length() {
		return PlayerRow{}, fmt.Errorf("%w: row %d (page has %d rows)", ErrRowNotFound, rowIndex, rows.Length())
	}
	row := p.parseRow(doc, rowIndex, rows.Eq(rowIndex))
	if row.Name == "" {
		return PlayerRow{}, fmt.Errorf("%w: row %d has no player name", ErrRowNotFound, rowIndex)
	}
	return row, nil
}

// FindPlayerByName returns the index of the first row whose player name equals `name`,
// ignoring case. Rows without a name never match.
func (p Parser) FindPlayerByName(doc *goquery.Document, name string) (int, error) {
	rows, err := p.rankingRows(doc)
	if err != nil {
		return 0, err
	}
	target := htmlutil.NormalizeText(name)
	if target == "" {
		return 0, fmt.Errorf("%w: empty player name", ErrRowNotFound)
	}

	found := -1
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		rowName := htmlutil.Text(row.Find(p.sel.PlayerLink).First())
		if rowName != "" && strings.EqualFold(rowName, target) {
			found = i
			return false
		}
		return true
	})
	if found < 0 {
		return 0, fmt.Errorf("%w: no player named %q", ErrRowNotFound, name)
	}
	return found, nil
}

// ExtractRows parses every named row of a ranking page in document order.
func (p Parser) ExtractRows(doc *goquery.Document) ([]PlayerRow, error) {
	rows, err := p.rankingRows(doc)
	if err != nil {
		return nil, err
	}
	var out []PlayerRow
	rows.Each(func(i int, row *goquery.Selection) {
		parsed := p.parseRow(doc, i, row)
		if parsed.Name == "" {
			return
		}
		out = append(out, parsed)
	})
	return out, nil
}
