package braacket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"braacket-bot/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Coordinate locates a rank inside the paginated ranking table.
type Coordinate struct {
	// Page is 1-based.
	Page int
	// Row is 0-based within the page.
	Row int
}

// ResolveCoordinate maps a 1-based global rank to the page holding it and the row inside that page.
func ResolveCoordinate(rank, pageSize int) (Coordinate, error) {
	if rank < 1 {
		return Coordinate{}, fmt.Errorf("%w: rank %d must be at least 1", ErrInvalidRank, rank)
	}
	if pageSize < 1 {
		return Coordinate{}, fmt.Errorf("%w: page size %d must be at least 1", ErrInvalidRank, pageSize)
	}
	page := (rank + pageSize - 1) / pageSize
	return Coordinate{
		Page: page,
		Row:  rank - (page-1)*pageSize - 1,
	}, nil
}

// RankOf is the inverse of ResolveCoordinate.
func RankOf(c Coordinate, pageSize int) int {
	return (c.Page-1)*pageSize + c.Row + 1
}

func (p Parser) paginationSection(doc *goquery.Document) *goquery.Selection {
	return doc.Find("section").Eq(p.sel.PaginationSection)
}

// DiscoverNextPageURL returns the absolute url of the next ranking page, the second return
// value is false when the current page is the last one (or the widget is missing entirely).
func (p Parser) DiscoverNextPageURL(doc *goquery.Document) (string, bool) {
	button := p.paginationSection(doc).
		Find(p.sel.NextButtonGroup).
		Eq(p.sel.NextButtonIndex).
		Find(p.sel.NextButton).
		First()
	if button.Length() == 0 || button.HasClass("disabled") {
		return "", false
	}
	href := strings.TrimSpace(button.AttrOr("href", ""))
	if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
		return "", false
	}

	resolved, err := htmlutil.ResolveHref(doc.Url, href)
	if err != nil {
		return "", false
	}
	if doc.Url != nil && resolved == doc.Url.String() {
		return "", false
	}
	return resolved, true
}

var numberRegex = regexp.MustCompile(`\d+`)

// ParseTotalPlayerCount returns the last number in the text of the pagination widget,
// ex. "Page 1 / 3 — showing 1-200 of 437" -> 437.
func ParseTotalPlayerCount(text string) (int, error) {
	numbers := numberRegex.FindAllString(text, -1)
	if len(numbers) == 0 {
		return 0, fmt.Errorf("%w: no player count in %q", ErrParse, text)
	}
	total, err := strconv.Atoi(numbers[len(numbers)-1])
	if err != nil {
		return 0, fmt.Errorf("%w: player count: %w", ErrParse, err)
	}
	return total, nil
}

func (p Parser) DiscoverTotalPlayerCount(doc *goquery.Document) (int, error) {
	addon := p.paginationSection(doc).
		Find(p.sel.TotalGroup).
		Eq(p.sel.TotalGroupIndex).
		Find(p.sel.TotalAddon).
		First()
	if addon.Length() == 0 {
		return 0, fmt.Errorf("%w: player count widget is missing", ErrParse)
	}
	return ParseTotalPlayerCount(htmlutil.Text(addon))
}

// DiscoverPageCount reads the "<current> / <total>" widget and returns the total.
func (p Parser) DiscoverPageCount(doc *goquery.Document) (int, error) {
	text := htmlutil.Text(p.paginationSection(doc).Find(p.sel.PageAddon).First())
	_, total, found := strings.Cut(text, "/")
	if !found {
		return 0, fmt.Errorf("%w: page count widget %q", ErrParse, text)
	}
	count, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return 0, fmt.Errorf("%w: page count widget %q: %w", ErrParse, text, err)
	}
	return count, nil
}
