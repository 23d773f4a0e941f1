package ranking

import (
	"strings"

	"braacket-bot/internal/scrapers/braacket"
)

// DefaultRegions are the rankings selectable by region key.
var DefaultRegions = map[string]string{
	"DFW":  "https://braacket.com/league/DFWSMASH2/ranking/B96401A8-7387-4BC1-B80B-7064F93AF2D5?rows=200",
	"MDVA": "https://braacket.com/league/NYC/ranking/12345ABCD12345?rows=200",
	"SC":   "https://braacket.com/league/scultimate/ranking?rows=200",
}

func normalizeRegions(regions map[string]string) map[string]string {
	out := make(map[string]string, len(regions))
	for key, url := range regions {
		out[strings.ToUpper(strings.TrimSpace(key))] = url
	}
	return out
}

// resolveSource turns a region key or a raw url into a source. Region keys are matched
// case-insensitively, anything else is taken as a url without validation.
func resolveSource(regions map[string]string, regionOrUrl string) braacket.Source {
	input := strings.TrimSpace(regionOrUrl)
	region := strings.ToUpper(input)
	url, ok := regions[region]
	if ok {
		return braacket.Source{Region: region, URL: url}
	}
	return braacket.Source{URL: input}
}

// SetRankingSource changes the ranking every following operation reads. Work already in
// progress keeps the source it started with.
func (s *Service) SetRankingSource(regionOrUrl string) (braacket.Source, error) {
	if strings.TrimSpace(regionOrUrl) == "" {
		return braacket.Source{}, ErrEmptySource
	}
	src := resolveSource(s.regions, regionOrUrl)

	s.sourceMutex.Lock()
	defer s.sourceMutex.Unlock()
	src.Version = s.source.Load().Version + 1
	s.source.Store(&src)

	s.tel.ReportDebug(report_service_source, src.Label(), src.URL, src.Version)
	return src, nil
}

// LookupSource resolves a region key or url without making it the active source.
func (s *Service) LookupSource(regionOrUrl string) (braacket.Source, error) {
	if strings.TrimSpace(regionOrUrl) == "" {
		return braacket.Source{}, ErrEmptySource
	}
	return resolveSource(s.regions, regionOrUrl), nil
}

// Source returns the active ranking source.
func (s *Service) Source() braacket.Source {
	return *s.source.Load()
}

// Regions returns the known region keys and their urls.
func (s *Service) Regions() map[string]string {
	out := make(map[string]string, len(s.regions))
	for k, v := range s.regions {
		out[k] = v
	}
	return out
}
