package rankcache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const keyPrefix = "player_"

// Key returns the cache key of a 1-based rank.
func Key(rank int) string {
	return fmt.Sprintf("%s%d", keyPrefix, rank)
}

// ParseKey returns the rank encoded in a key.
func ParseKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return 0, false
	}
	rank, err := strconv.Atoi(rest)
	if err != nil || rank < 1 {
		return 0, false
	}
	return rank, true
}

// Entry is the cached state of a single rank. The json field names are shared with
// cache files written by older versions of the bot, which only had playerData,
// character and losses.
type Entry struct {
	PlayerData string   `json:"playerData"`
	Character  []string `json:"character"`
	// Losses is every opponent the player lost to, in the order braacket lists them.
	Losses []string `json:"losses,omitempty"`
	// LossCharacters maps an opponent to the characters they were seen playing.
	LossCharacters  map[string][]string `json:"lossCharacters,omitempty"`
	PlayerURL       string              `json:"playerUrl,omitempty"`
	Source          string              `json:"source,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
	LossesTimestamp *time.Time          `json:"lossesTimestamp,omitempty"`
}

// Losses is the loss history of a player as scraped from their page.
type Losses struct {
	Opponents  []string
	Characters map[string][]string
}

// HasLosses is true once the loss history of the player has been cached, even if it is empty.
func (e Entry) HasLosses() bool {
	return e.LossesTimestamp != nil
}

// WithLosses returns a copy of the entry holding `losses`, replacing any previous history.
func (e Entry) WithLosses(losses Losses, at time.Time) Entry {
	e.Losses = losses.Opponents
	if e.Losses == nil {
		e.Losses = []string{}
	}
	e.LossCharacters = losses.Characters
	e.LossesTimestamp = &at
	return e
}

// carryLosses keeps the loss history of `prev` if both entries describe the same player.
func (e Entry) carryLosses(prev Entry) Entry {
	if e.HasLosses() || !prev.HasLosses() {
		return e
	}
	if prev.PlayerData != e.PlayerData || prev.Source != e.Source {
		return e
	}
	e.Losses = prev.Losses
	e.LossCharacters = prev.LossCharacters
	e.LossesTimestamp = prev.LossesTimestamp
	return e
}

func fresh(at time.Time, now time.Time, expiry time.Duration) bool {
	return !at.IsZero() && now.Sub(at) < expiry
}
