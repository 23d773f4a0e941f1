package braacket

import "errors"

var (
	// ErrNetwork is returned when a page could not be fetched after exhausting retries,
	// or when the site answered with an error status.
	ErrNetwork = errors.New("braacket: network error")
	// ErrParse is returned when an element the scraper relies on is missing from the page.
	ErrParse = errors.New("braacket: unexpected page structure")
	// ErrRowNotFound is returned when a ranking row does not exist or has no player name.
	ErrRowNotFound = errors.New("braacket: row not found")
	// ErrInvalidRank is returned for ranks below 1, it never involves a network call.
	ErrInvalidRank = errors.New("braacket: invalid rank")
	// ErrLossFetch is returned when a player's match history could not be fetched.
	ErrLossFetch = errors.New("braacket: failed to fetch losses")
)
