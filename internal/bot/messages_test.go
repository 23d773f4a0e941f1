package bot

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/scrapers/braacket"
	"braacket-bot/pkg/testutil"

	"github.com/stretchr/testify/require"
)

func TestSplitMessage(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		limit    int
		expected []string
	}{
		{name: "short", text: "hello", limit: 10, expected: []string{"hello"}},
		{name: "empty", text: "", limit: 10, expected: nil},
		{name: "lines", text: "aaaa\nbbbb\ncccc", limit: 10, expected: []string{"aaaa\nbbbb\n", "cccc"}},
		{name: "long line", text: "abcdefghijklmnopqrstuvwxy\nz", limit: 10, expected: []string{"abcdefghij", "klmnopqrst", "uvwxy\nz"}},
		{name: "multibyte", text: "ééééé\nééééé", limit: 6, expected: []string{"ééééé\n", "ééééé"}},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, SplitMessage(test.text, test.limit))
		})
	}
}

func TestSplitMessageRandom(t *testing.T) {
	rndm := rand.New(rand.NewSource(7))
	lineLength := testutil.RandomSwitch(8, 1, 1)

	for i := 0; i < 50; i++ {
		var lines []string
		count := rndm.Intn(300) + 1
		for j := 0; j < count; j++ {
			length := 20
			switch lineLength(rndm) {
			case 1:
				length = 400
			case 2:
				length = 2500
			}
			lines = append(lines, testutil.RandomName(rndm, rndm.Intn(length)+1))
		}
		text := strings.Join(lines, "\n")

		chunks := SplitMessage(text, MaxMessageLength)
		for _, chunk := range chunks {
			require.LessOrEqual(t, utf8.RuneCountInString(chunk), MaxMessageLength)
		}
		require.Equal(t, text, strings.Join(chunks, ""))
	}
}

func TestDescribeError(t *testing.T) {
	testCases := []struct {
		err      error
		expected string
	}{
		{err: fmt.Errorf("%w: 0", braacket.ErrInvalidRank), expected: "Invalid rank number."},
		{err: fmt.Errorf("x: %w", braacket.ErrLossFetch), expected: "An error occurred while fetching losses, please try again later."},
		{err: braacket.ErrRowNotFound, expected: "No players found. Please try again later."},
		{err: braacket.ErrNetwork, expected: "Braacket could not be reached, please try again later."},
		{err: rankcache.ErrBatchRunning, expected: "A cache job is already running, please wait for it to finish."},
		{err: errors.New("boom"), expected: "An error occurred: boom"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, describeError(test.err))
	}
}

func TestDescribeReport(t *testing.T) {
	started := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	report := rankcache.Report{
		Source:   braacket.Source{Region: "DFW"},
		Total:    437,
		Cached:   437,
		Started:  started,
		Finished: started.Add(83*time.Second + 620*time.Millisecond),
	}
	require.Equal(t,
		"Cached the ranks of 437/437 players of DFW in 1m24s.",
		describeReport("ranks", report, nil),
	)

	report.Cached = 12
	report.Incomplete = true
	require.Equal(t,
		"Cached the ranks of 12/437 players of DFW in 1m24s. The ranking ended before every player could be cached.",
		describeReport("ranks", report, nil),
	)
}
