package braackettest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	RankingPath = "/league/TEST/ranking"
	PlayerPath  = "/league/TEST/player/"
)

// League is the data served by a Server.
type League struct {
	Players  []Player
	PageSize int
	// Matches is keyed by player name.
	Matches map[string][]Match
	// AdvertisedTotal replaces the player count shown by the pagination widget when set.
	AdvertisedTotal int
}

// NumberedLeague creates a league of `count` players named "Player<rank>", each playing Mario.
func NumberedLeague(count, pageSize int) League {
	players := make([]Player, count)
	for i := range players {
		players[i] = Player{
			Name:       fmt.Sprintf("Player%d", i+1),
			Characters: []Image{Char("Mario")},
		}
	}
	return League{Players: players, PageSize: pageSize, Matches: map[string][]Match{}}
}

type failure struct {
	status int
	times  int
}

type Server struct {
	*httptest.Server

	mutex    sync.Mutex
	league   League
	hits     map[string]int
	failures map[string]*failure
}

func NewServer(t testing.TB, league League) *Server {
	if league.PageSize <= 0 {
		league.PageSize = 200
	}
	s := &Server{
		league:   league,
		hits:     map[string]int{},
		failures: map[string]*failure{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func PlayerHref(name string) string {
	return PlayerPath + strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

func pageHref(page, pageSize int) string {
	return fmt.Sprintf("%s?rows=%d&page=%d", RankingPath, pageSize, page)
}

// RankingURL is the url of the first ranking page.
func (s *Server) RankingURL() string {
	return fmt.Sprintf("%s%s?rows=%d", s.URL, RankingPath, s.league.PageSize)
}

func (s *Server) PlayerURL(name string) string {
	return s.URL + PlayerHref(name)
}

// Hits returns the number of requests made to a path (query excluded).
func (s *Server) Hits(path string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.hits[path]
}

// PageHits returns the number of requests made to a ranking page.
func (s *Server) PageHits(page int) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.hits[fmt.Sprintf("%s#%d", RankingPath, page)]
}

// Fail makes the next `times` requests to `path` answer with `status`.
func (s *Server) Fail(path string, status, times int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[path] = &failure{status: status, times: times}
}

// SetLeague replaces the served data.
func (s *Server) SetLeague(league League) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if league.PageSize <= 0 {
		league.PageSize = s.league.PageSize
	}
	s.league = league
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	s.hits[r.URL.Path]++
	if f, ok := s.failures[r.URL.Path]; ok && f.times > 0 {
		f.times--
		s.mutex.Unlock()
		w.WriteHeader(f.status)
		return
	}
	league := s.league
	if r.URL.Path == RankingPath {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		s.hits[fmt.Sprintf("%s#%d", RankingPath, max(page, 1))]++
	}
	s.mutex.Unlock()

	w.Header().Set("content-type", "text/html; charset=utf-8")

	switch {
	case r.URL.Path == RankingPath:
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		w.Write([]byte(rankingPage(league, page).HTML()))
	case strings.HasPrefix(r.URL.Path, PlayerPath):
		for _, p := range league.Players {
			if PlayerHref(p.Name) == r.URL.Path {
				w.Write([]byte(PlayerPageHTML(p.Name, league.Matches[p.Name])))
				return
			}
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}

func rankingPage(league League, page int) RankingPage {
	total := len(league.Players)
	pageCount := max((total+league.PageSize-1)/league.PageSize, 1)

	start := min((page-1)*league.PageSize, total)
	end := min(start+league.PageSize, total)

	players := make([]Player, end-start)
	copy(players, league.Players[start:end])
	for i := range players {
		if players[i].Href == "" && players[i].Name != "" {
			players[i].Href = PlayerHref(players[i].Name)
		}
	}

	out := RankingPage{
		Players:   players,
		Page:      page,
		PageCount: pageCount,
		FirstRank: start + 1,
		Total:     total,
	}
	if league.AdvertisedTotal > 0 {
		out.Total = league.AdvertisedTotal
	}
	if page > 1 {
		out.PrevHref = pageHref(page-1, league.PageSize)
	}
	if page < pageCount {
		out.NextHref = pageHref(page+1, league.PageSize)
	}
	return out
}
