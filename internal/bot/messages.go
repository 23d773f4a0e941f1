package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/ranking"
	"braacket-bot/internal/scrapers/braacket"
)

// MaxMessageLength is the longest message discord accepts.
const MaxMessageLength = 2000

// SplitMessage splits a message into chunks of at most `limit` characters. Chunks end on
// line boundaries unless a single line is longer than the limit.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if utf8.RuneCountInString(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, current.String())
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen <= limit {
			current.WriteString(line)
			currentLen += lineLen
			continue
		}
		flush()

		runes := []rune(line)
		for len(runes) > limit {
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		current.WriteString(string(runes))
		currentLen = len(runes)
	}
	flush()
	return chunks
}

const helpMessage = `**Available Commands:**
**$ViewCurrent [1-200] [Region]** - View the current player rankings. Default is top 15 players.
**$ViewLoss [PlayerName or PlayerRank]** - View the losses for a specific player by name or rank.
**$Braacket [Popular Region or Link]** - Change the braacket URL to a region or custom URL. Current available regions %s
**$ClearCache** - Clear cached data.
**$CacheAll** - Cache every player of the current ranking.
**$CacheLosses** - Cache the losses of every player of the current ranking.`

// describeError turns an error into a message for the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, braacket.ErrInvalidRank):
		return "Invalid rank number."
	case errors.Is(err, ranking.ErrEmptySource):
		return "Please provide a valid region or URL."
	case errors.Is(err, rankcache.ErrBatchRunning):
		return "A cache job is already running, please wait for it to finish."
	case errors.Is(err, braacket.ErrLossFetch):
		return "An error occurred while fetching losses, please try again later."
	case errors.Is(err, rankcache.ErrRankingExhausted), errors.Is(err, braacket.ErrRowNotFound), errors.Is(err, braacket.ErrParse):
		return "No players found. Please try again later."
	case errors.Is(err, braacket.ErrNetwork):
		return "Braacket could not be reached, please try again later."
	}
	return fmt.Sprintf("An error occurred: %s", err.Error())
}

func describeReport(kind string, report rankcache.Report, err error) string {
	label := report.Source.Label()
	if err != nil {
		return fmt.Sprintf(
			"Caching the %s of %s stopped after %d/%d players: %s",
			kind, label, report.Cached, report.Total, describeError(err),
		)
	}
	out := fmt.Sprintf(
		"Cached the %s of %d/%d players of %s in %s.",
		kind, report.Cached, report.Total, label, report.Duration().Round(time.Second),
	)
	if report.Incomplete {
		out += " The ranking ended before every player could be cached."
	}
	return out
}
