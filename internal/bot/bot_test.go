package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/ranking"
	"braacket-bot/internal/scrapers/braacket"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mutex     sync.Mutex
	sent      []string
	deleted   []string
	reactions []string
	nextID    int
}

func (c *fakeChat) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.nextID++
	c.sent = append(c.sent, content)
	return &discordgo.Message{ID: fmt.Sprint(c.nextID), ChannelID: channelID, Content: content}, nil
}

func (c *fakeChat) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.deleted = append(c.deleted, messageID)
	return nil
}

func (c *fakeChat) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.reactions = append(c.reactions, emojiID)
	return nil
}

func (c *fakeChat) Sent() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]string(nil), c.sent...)
}

type fakeRanking struct {
	source     braacket.Source
	lines      []string
	losses     ranking.PlayerLosses
	err        error
	batchErr   error
	cleared    bool
	listedFrom braacket.Source
	count      int
}

func (f *fakeRanking) Source() braacket.Source { return f.source }

func (f *fakeRanking) LookupSource(regionOrUrl string) (braacket.Source, error) {
	if regionOrUrl == "" {
		return braacket.Source{}, ranking.ErrEmptySource
	}
	return braacket.Source{Region: strings.ToUpper(regionOrUrl), URL: "https://braacket.com/" + regionOrUrl}, nil
}

func (f *fakeRanking) SetRankingSource(regionOrUrl string) (braacket.Source, error) {
	src, err := f.LookupSource(regionOrUrl)
	if err != nil {
		return src, err
	}
	f.source = src
	return src, nil
}

func (f *fakeRanking) Regions() map[string]string {
	return map[string]string{"DFW": "a", "SC": "b"}
}

func (f *fakeRanking) DefaultCount() int { return 15 }

func (f *fakeRanking) ClampCount(count int) int {
	return min(max(count, 1), 200)
}

func (f *fakeRanking) ListTopPlayersOf(ctx context.Context, src braacket.Source, count, pageHint int) ([]string, error) {
	f.listedFrom = src
	f.count = count
	return f.lines, f.err
}

func (f *fakeRanking) GetPlayerLosses(ctx context.Context, nameOrRank string) (ranking.PlayerLosses, error) {
	return f.losses, f.err
}

func (f *fakeRanking) SuggestNames(name string, limit int) []string {
	return []string{"MkLeo"}
}

func (f *fakeRanking) ClearCache(ctx context.Context) error {
	f.cleared = true
	return f.err
}

func (f *fakeRanking) PopulateAllRanks(ctx context.Context) (rankcache.Report, error) {
	start := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	return rankcache.Report{
		JobID:    "abcdefgh",
		Source:   f.source,
		Total:    10,
		Cached:   4,
		Started:  start,
		Finished: start.Add(3 * time.Second),
	}, f.batchErr
}

func (f *fakeRanking) PopulateAllLosses(ctx context.Context) (rankcache.Report, error) {
	return f.PopulateAllRanks(ctx)
}

func message(author, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: author},
	}
}

func newTestBot(rank *fakeRanking, opts Options) (*Bot, *fakeChat) {
	return New(context.Background(), rank, &telemetry.Recorder{}, opts), &fakeChat{}
}

func TestViewCurrent(t *testing.T) {
	rank := &fakeRanking{
		source: braacket.Source{Region: "DFW"},
		lines:  []string{"1. MkLeo", "2. Sonix"},
	}
	b, chat := newTestBot(rank, Options{})

	b.HandleMessage(context.Background(), chat, message("u1", "$ViewCurrent 2"), "self")
	require.Equal(t, []string{
		"Fetching top 2 players, please wait...",
		"**Braacket's current Top 2 Players in DFW**\n\n1. MkLeo\n2. Sonix",
	}, chat.Sent())
	require.Equal(t, []string{"1"}, chat.deleted)
	require.Equal(t, 2, rank.count)

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$viewcurrent 500 sc"), "self")
	require.Equal(t, 200, rank.count)
	require.Equal(t, "SC", rank.listedFrom.Region)
	require.Contains(t, chat.Sent()[1], "Top 200 Players in SC")

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$viewcurrent"), "self")
	require.Equal(t, 15, rank.count)

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$viewcurrent 0"), "self")
	require.Equal(t, 1, rank.count)
	require.Contains(t, chat.Sent()[1], "Top 1 Players in DFW")
}

func TestViewCurrentSplitsLongLists(t *testing.T) {
	var lines []string
	for i := 1; i <= 200; i++ {
		lines = append(lines, fmt.Sprintf("%d. Player%d <:mario:1317798022016401440><:fox:1317797329348333589>", i, i))
	}
	rank := &fakeRanking{source: braacket.Source{Region: "DFW"}, lines: lines}
	b, chat := newTestBot(rank, Options{})

	b.HandleMessage(context.Background(), chat, message("u1", "$viewcurrent 200"), "self")
	sent := chat.Sent()
	require.Greater(t, len(sent), 3)
	for _, msg := range sent {
		require.LessOrEqual(t, len(msg), MaxMessageLength)
	}
}

func TestViewLoss(t *testing.T) {
	rank := &fakeRanking{
		losses: ranking.PlayerLosses{
			Player: ranking.Player{Rank: 2, Name: "Sonix"},
			Losses: []ranking.Loss{
				{Opponent: "Alpha", Count: 3, Icons: "<:fox:1>"},
				{Opponent: "Bravo", Count: 1},
			},
		},
	}
	b, chat := newTestBot(rank, Options{})

	b.HandleMessage(context.Background(), chat, message("u1", "$viewloss sonix"), "self")
	require.Equal(t, []string{
		"Searching for losses...",
		"# Losses for **Sonix**:\n\nAlpha <:fox:1> x3\nBravo  x1",
	}, chat.Sent())
	require.Equal(t, []string{"1"}, chat.deleted)

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$viewloss"), "self")
	require.Equal(t, []string{"Please provide a player name or rank (e.g., $ViewLoss 1 or $ViewLoss PlayerName)"}, chat.Sent())

	rank.losses.Losses = nil
	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$viewloss 2"), "self")
	require.Equal(t, "No losses found for Sonix.", chat.Sent()[1])
}

func TestViewLossErrors(t *testing.T) {
	rank := &fakeRanking{err: fmt.Errorf("%w: \"mkleoo\"", ranking.ErrPlayerNotFound)}
	b, chat := newTestBot(rank, Options{})

	b.HandleMessage(context.Background(), chat, message("u1", "$viewloss mkleoo"), "self")
	require.Equal(t, []string{
		"Searching for losses...",
		"No player named mkleoo was found. Did you mean MkLeo?",
	}, chat.Sent())

	rank.err = fmt.Errorf("%w: 0", braacket.ErrInvalidRank)
	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$viewloss 0"), "self")
	require.Equal(t, "Invalid rank number.", chat.Sent()[1])
}

func TestBraacketCommand(t *testing.T) {
	rank := &fakeRanking{}
	b, chat := newTestBot(rank, Options{Admins: []string{"admin"}})

	b.HandleMessage(context.Background(), chat, message("u1", "$braacket sc"), "self")
	require.Equal(t, []string{"You are not allowed to change the ranking."}, chat.Sent())
	require.Equal(t, "", rank.source.URL)

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("admin", "$Braacket sc"), "self")
	require.Equal(t, []string{"Braacket URL updated to: https://braacket.com/sc"}, chat.Sent())
	require.Equal(t, []string{"🫡"}, chat.reactions)

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("admin", "$braacket"), "self")
	require.Equal(t, []string{"Please provide a valid region or URL."}, chat.Sent())
}

func TestSimpleCommands(t *testing.T) {
	rank := &fakeRanking{}
	b, chat := newTestBot(rank, Options{})

	b.HandleMessage(context.Background(), chat, message("u1", "$clearcache"), "self")
	require.True(t, rank.cleared)
	require.Equal(t, []string{"Cache cleared successfully!"}, chat.Sent())

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$help"), "self")
	require.Contains(t, chat.Sent()[0], "**$ViewLoss [PlayerName or PlayerRank]**")
	require.Contains(t, chat.Sent()[0], "[DFW], [SC]")

	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$dance"), "self")
	require.Equal(t, []string{"Invalid command. Type `$Help` for a list of available commands."}, chat.Sent())
}

func TestIgnoredMessages(t *testing.T) {
	b, chat := newTestBot(&fakeRanking{}, Options{})

	b.HandleMessage(context.Background(), chat, message("self", "$help"), "self")
	b.HandleMessage(context.Background(), chat, message("u1", "hello $help"), "self")
	b.HandleMessage(context.Background(), chat, message("u1", "   "), "self")
	fromBot := message("u2", "$help")
	fromBot.Author.Bot = true
	b.HandleMessage(context.Background(), chat, fromBot, "self")

	require.Empty(t, chat.Sent())
}

func TestCacheAll(t *testing.T) {
	rank := &fakeRanking{source: braacket.Source{Region: "DFW"}}
	b, chat := newTestBot(rank, Options{})

	b.HandleMessage(context.Background(), chat, message("u1", "$cacheall"), "self")
	b.Wait()
	require.Equal(t, []string{
		"Caching the ranks of every player of DFW, this can take a while...",
		"Cached the ranks of 4/10 players of DFW in 3s.",
	}, chat.Sent())

	rank.batchErr = fmt.Errorf("rank 5: %w", braacket.ErrRowNotFound)
	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$cachelosses"), "self")
	b.Wait()
	require.Equal(t, "Caching the losses of DFW stopped after 4/10 players: No players found. Please try again later.", chat.Sent()[1])

	rank.batchErr = rankcache.ErrBatchRunning
	chat = &fakeChat{}
	b.HandleMessage(context.Background(), chat, message("u1", "$cacheall"), "self")
	b.Wait()
	require.Equal(t, "A cache job is already running, please wait for it to finish.", chat.Sent()[1])
}
