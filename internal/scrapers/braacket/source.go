package braacket

// Source is an immutable snapshot of the ranking being scraped. Anything that spans
// multiple requests captures one Source and uses it throughout.
type Source struct {
	// Region is the region key the source was resolved from, it is empty for raw urls.
	Region string `json:"region"`
	URL    string `json:"url"`
	// Version increases every time the active source changes.
	Version int64 `json:"version"`
}

// Label is a human readable name for the source.
func (s Source) Label() string {
	if s.Region != "" {
		return s.Region
	}
	return s.URL
}
