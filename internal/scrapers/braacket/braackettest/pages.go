// Package braackettest renders pages shaped like braacket's ranking and player pages and
// serves them from an httptest server.
package braackettest

import (
	"fmt"
	"html"
	"strings"
)

// Image is a character icon, empty attributes are not rendered.
type Image struct {
	OriginalTitle string
	Alt           string
	Title         string
}

func Char(name string) Image {
	return Image{OriginalTitle: name, Alt: name, Title: name}
}

type Player struct {
	Name       string
	Href       string
	Characters []Image
}

type RankingPage struct {
	Players   []Player
	Page      int
	PageCount int
	FirstRank int
	Total     int
	PrevHref  string
	NextHref  string
	// TotalText overrides the "showing x-y of z" text when set.
	TotalText string
}

func writeImages(out *strings.Builder, images []Image) {
	out.WriteString(`<span class="game_characters">`)
	for _, img := range images {
		out.WriteString("<img")
		if img.OriginalTitle != "" {
			fmt.Fprintf(out, ` data-original-title="%s"`, html.EscapeString(img.OriginalTitle))
		}
		if img.Alt != "" {
			fmt.Fprintf(out, ` alt="%s"`, html.EscapeString(img.Alt))
		}
		if img.Title != "" {
			fmt.Fprintf(out, ` title="%s"`, html.EscapeString(img.Title))
		}
		out.WriteString(">")
	}
	out.WriteString(`</span>`)
}

func writeButton(out *strings.Builder, href, label string) {
	if href == "" {
		fmt.Fprintf(out, `<div class="input-group-btn"><a class="btn btn-default disabled" href="#">%s</a></div>`, label)
		return
	}
	fmt.Fprintf(out, `<div class="input-group-btn"><a class="btn btn-default" href="%s">%s</a></div>`, html.EscapeString(href), label)
}

func (p RankingPage) HTML() string {
	var out strings.Builder
	out.WriteString("<!DOCTYPE html><html><head><title>Ranking</title></head><body>\n")
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&out, "<section><h2>section %d</h2></section>\n", i)
	}

	out.WriteString(`<section><table class="table table-hover"><thead><tr><th>#</th><th>Player</th></tr></thead><tbody>`)
	for i, player := range p.Players {
		fmt.Fprintf(&out, `<tr><td>%d</td><td class="ellipsis">`, p.FirstRank+i)
		if player.Href != "" {
			fmt.Fprintf(&out, `<a href="%s">%s</a>`, html.EscapeString(player.Href), html.EscapeString(player.Name))
		} else {
			fmt.Fprintf(&out, `<a>%s</a>`, html.EscapeString(player.Name))
		}
		writeImages(&out, player.Characters)
		out.WriteString("</td><td>1500</td></tr>\n")
	}
	out.WriteString("</tbody></table></section>\n")

	out.WriteString(`<section><div class="input-group form-group">`)
	writeButton(&out, p.PrevHref, "&lsaquo;")
	fmt.Fprintf(&out, `<div class="input-group-addon">%d / %d</div>`, p.Page, p.PageCount)
	writeButton(&out, p.NextHref, "&rsaquo;")
	out.WriteString(`</div>`)
	out.WriteString(`<div class="input-group form-group"><div class="input-group-addon">Rows</div><input type="text" value="200"></div>`)
	totalText := p.TotalText
	if totalText == "" {
		last := p.FirstRank + len(p.Players) - 1
		totalText = fmt.Sprintf("Page %d / %d — showing %d-%d of %d", p.Page, p.PageCount, p.FirstRank, last, p.Total)
	}
	fmt.Fprintf(&out, `<div class="input-group form-group"><div class="input-group-addon my-input-group-addon">%s</div></div>`, html.EscapeString(totalText))
	out.WriteString("</section>\n</body></html>")
	return out.String()
}

type Match struct {
	Opponent     string
	OpponentHref string
	// Result is "Win" or "Lose"
	Result     string
	Characters []Image
}

func Loss(opponent string, chars ...string) Match {
	images := make([]Image, len(chars))
	for i, c := range chars {
		images[i] = Char(c)
	}
	return Match{
		Opponent:     opponent,
		OpponentHref: "/league/TEST/player/" + strings.ToLower(strings.ReplaceAll(opponent, " ", "-")),
		Result:       "Lose",
		Characters:   images,
	}
}

func Win(opponent string, chars ...string) Match {
	m := Loss(opponent, chars...)
	m.Result = "Win"
	return m
}

func PlayerPageHTML(name string, matches []Match) string {
	var out strings.Builder
	fmt.Fprintf(&out, "<!DOCTYPE html><html><head><title>%s</title></head><body>\n", html.EscapeString(name))
	out.WriteString(`<table class="table my-table-show_max"><tbody>`)
	for _, m := range matches {
		class := "number-success"
		if m.Result == "Lose" {
			class = "number-danger"
		}
		fmt.Fprintf(&out, `<tr><td class="ellipsis"><span class="text-bold %s">%s</span></td>`, class, html.EscapeString(m.Result))
		fmt.Fprintf(&out, `<td class="ellipsis"><a href="%s">%s</a>`, html.EscapeString(m.OpponentHref), html.EscapeString(m.Opponent))
		writeImages(&out, m.Characters)
		out.WriteString("</td></tr>\n")
	}
	out.WriteString("</tbody></table>\n</body></html>")
	return out.String()
}
