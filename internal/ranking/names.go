package ranking

import (
	"slices"
	"strings"

	"braacket-bot/internal/rankcache"

	"github.com/antzucaro/matchr"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity of a suggested name.
const suggestionThreshold = 0.8

func (s *Service) cachedPlayers() []Player {
	src := s.Source()
	var out []Player
	for key, entry := range s.cache.Entries() {
		rank, ok := rankcache.ParseKey(key)
		if !ok || entry.PlayerData == "" {
			continue
		}
		if entry.Source != "" && entry.Source != src.URL {
			continue
		}
		out = append(out, entryPlayer(rank, entry))
	}
	slices.SortFunc(out, func(a, b Player) int {
		return a.Rank - b.Rank
	})
	return out
}

// SuggestNames returns up to `limit` cached names similar to `name`, most similar first.
func (s *Service) SuggestNames(name string, limit int) []string {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return nil
	}

	type suggestion struct {
		name       string
		similarity float64
	}
	var suggestions []suggestion
	seen := map[string]struct{}{}
	for _, p := range s.cachedPlayers() {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}

		similarity := matchr.JaroWinkler(target, strings.ToLower(p.Name), false)
		if similarity >= suggestionThreshold {
			suggestions = append(suggestions, suggestion{name: p.Name, similarity: similarity})
		}
	}
	slices.SortStableFunc(suggestions, func(a, b suggestion) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		}
		return 0
	})

	var out []string
	for i := 0; i < len(suggestions) && (limit <= 0 || i < limit); i++ {
		out = append(out, suggestions[i].name)
	}
	return out
}

// SearchNames returns up to `limit` cached players whose name contains `query`, by rank.
func (s *Service) SearchNames(query string, limit int) []Player {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []Player
	for _, p := range s.cachedPlayers() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out
}
