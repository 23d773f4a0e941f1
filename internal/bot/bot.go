// Package bot answers the chat commands of a discord server.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/telemetry"
	"braacket-bot/internal/rankcache"
	"braacket-bot/internal/ranking"
	"braacket-bot/internal/scrapers/braacket"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("braacket.bot")

const (
	report_bot_send    = "bot.send"
	report_bot_command = "bot.command"
)

// Chat is the part of a discord session the bot writes to.
type Chat interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Ranking is the set of operations the commands are built on.
type Ranking interface {
	Source() braacket.Source
	LookupSource(regionOrUrl string) (braacket.Source, error)
	SetRankingSource(regionOrUrl string) (braacket.Source, error)
	Regions() map[string]string
	DefaultCount() int
	ClampCount(count int) int
	ListTopPlayersOf(ctx context.Context, src braacket.Source, count, pageHint int) ([]string, error)
	GetPlayerLosses(ctx context.Context, nameOrRank string) (ranking.PlayerLosses, error)
	SuggestNames(name string, limit int) []string
	ClearCache(ctx context.Context) error
	PopulateAllRanks(ctx context.Context) (rankcache.Report, error)
	PopulateAllLosses(ctx context.Context) (rankcache.Report, error)
}

type Options struct {
	// Prefix starts every command, defaults to "$".
	Prefix string
	// Admins are the user ids allowed to run the admin commands, everyone is allowed when empty.
	Admins []string
}

type Bot struct {
	ranking Ranking
	tel     telemetry.API
	opts    Options

	// ctx is the lifetime of the jobs started by commands
	ctx  context.Context
	jobs sync.WaitGroup
}

func New(ctx context.Context, ranking Ranking, tel telemetry.API, opts Options) *Bot {
	assert.NotNil(ranking)
	assert.NotNil(tel)
	if opts.Prefix == "" {
		opts.Prefix = "$"
	}
	return &Bot{
		ranking: ranking,
		tel:     telemetry.NewScopedAPI("bot", tel),
		opts:    opts,
		ctx:     ctx,
	}
}

// Wait blocks until every background job started by a command has finished.
func (b *Bot) Wait() {
	b.jobs.Wait()
}

// OnMessageCreate is the discordgo handler of new messages.
func (b *Bot) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	b.HandleMessage(b.ctx, s, m.Message, selfID)
}

func (b *Bot) isAdmin(userID string) bool {
	return len(b.opts.Admins) == 0 || slices.Contains(b.opts.Admins, userID)
}

type reply struct {
	chat      Chat
	tel       telemetry.API
	channelID string
	messageID string
}

func (r reply) send(text string) *discordgo.Message {
	var last *discordgo.Message
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		msg, err := r.chat.ChannelMessageSend(r.channelID, chunk)
		if err != nil {
			r.tel.ReportBroken(report_bot_send, err, r.channelID)
			return last
		}
		last = msg
	}
	return last
}

func (r reply) delete(msg *discordgo.Message) {
	if msg == nil {
		return
	}
	err := r.chat.ChannelMessageDelete(r.channelID, msg.ID)
	if err != nil {
		r.tel.ReportWarning(report_bot_send, err, r.channelID, msg.ID)
	}
}

func (r reply) react(emoji string) {
	err := r.chat.MessageReactionAdd(r.channelID, r.messageID, emoji)
	if err != nil {
		r.tel.ReportWarning(report_bot_send, err, r.channelID, r.messageID)
	}
}

// HandleMessage runs the command in a message, if any. Errors are always answered in the
// channel, they never stop the bot.
func (b *Bot) HandleMessage(ctx context.Context, chat Chat, msg *discordgo.Message, selfID string) {
	if msg == nil || msg.Author == nil || msg.Author.Bot || msg.Author.ID == selfID {
		return
	}
	fields := strings.Fields(msg.Content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], b.opts.Prefix) {
		return
	}
	command := strings.ToLower(strings.TrimPrefix(fields[0], b.opts.Prefix))
	args := fields[1:]

	ctx, span := tracer.Start(ctx, "bot:HandleMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", command),
		attribute.String("channel_id", msg.ChannelID),
	)
	slog.DebugContext(ctx, "command received", "command", command, "args", args, "user", msg.Author.ID)

	r := reply{chat: chat, tel: b.tel, channelID: msg.ChannelID, messageID: msg.ID}

	var err error
	switch command {
	case "viewcurrent":
		err = b.viewCurrent(ctx, r, args)
	case "viewloss":
		err = b.viewLoss(ctx, r, args)
	case "braacket":
		if !b.isAdmin(msg.Author.ID) {
			r.send("You are not allowed to change the ranking.")
			return
		}
		err = b.setSource(r, args)
	case "clearcache":
		err = b.ranking.ClearCache(ctx)
		if err == nil {
			r.send("Cache cleared successfully!")
		}
	case "help":
		r.send(b.help())
	case "cacheall", "cachelosses":
		if !b.isAdmin(msg.Author.ID) {
			r.send("You are not allowed to start a cache job.")
			return
		}
		b.startBatch(r, command)
	default:
		r.send(fmt.Sprintf("Invalid command. Type `%sHelp` for a list of available commands.", b.opts.Prefix))
	}

	if err != nil {
		span.RecordError(err)
		b.tel.ReportDebug(report_bot_command, command, err)
		r.send(b.describe(err, args))
	}
}

func (b *Bot) describe(err error, args []string) string {
	if !errors.Is(err, ranking.ErrPlayerNotFound) {
		return describeError(err)
	}
	name := strings.Join(args, " ")
	out := fmt.Sprintf("No player named %s was found.", name)
	suggestions := b.ranking.SuggestNames(name, 3)
	if len(suggestions) > 0 {
		out += fmt.Sprintf(" Did you mean %s?", strings.Join(suggestions, ", "))
	}
	return out
}

func (b *Bot) help() string {
	regions := make([]string, 0, len(b.ranking.Regions()))
	for key := range b.ranking.Regions() {
		regions = append(regions, "["+key+"]")
	}
	sort.Strings(regions)
	return strings.ReplaceAll(fmt.Sprintf(helpMessage, strings.Join(regions, ", ")), "$", b.opts.Prefix)
}

func (b *Bot) viewCurrent(ctx context.Context, r reply, args []string) error {
	count := b.ranking.DefaultCount()
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err == nil {
			count = parsed
			args = args[1:]
		}
	}
	count = b.ranking.ClampCount(count)

	src := b.ranking.Source()
	if len(args) > 0 {
		var err error
		src, err = b.ranking.LookupSource(strings.Join(args, " "))
		if err != nil {
			return err
		}
	}

	waiting := r.send(fmt.Sprintf("Fetching top %d players, please wait...", count))
	defer r.delete(waiting)

	lines, err := b.ranking.ListTopPlayersOf(ctx, src, count, 0)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		r.send("No players found. Please try again later.")
		return nil
	}
	header := fmt.Sprintf("**Braacket's current Top %d Players in %s**\n\n", count, src.Label())
	r.send(header + strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) viewLoss(ctx context.Context, r reply, args []string) error {
	if len(args) == 0 {
		r.send(fmt.Sprintf("Please provide a player name or rank (e.g., %[1]sViewLoss 1 or %[1]sViewLoss PlayerName)", b.opts.Prefix))
		return nil
	}

	searching := r.send("Searching for losses...")
	defer r.delete(searching)

	result, err := b.ranking.GetPlayerLosses(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(result.Losses) == 0 {
		r.send(fmt.Sprintf("No losses found for %s.", result.Player.Name))
		return nil
	}

	lines := make([]string, len(result.Losses))
	for i, loss := range result.Losses {
		lines[i] = ranking.FormatLoss(loss)
	}
	r.send(fmt.Sprintf("# Losses for **%s**:\n\n%s", result.Player.Name, strings.Join(lines, "\n")))
	return nil
}

func (b *Bot) setSource(r reply, args []string) error {
	src, err := b.ranking.SetRankingSource(strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.react("🫡")
	r.send(fmt.Sprintf("Braacket URL updated to: %s", src.URL))
	return nil
}

// startBatch runs a cache job in the background and reports its outcome in the channel.
func (b *Bot) startBatch(r reply, command string) {
	kind := "ranks"
	run := b.ranking.PopulateAllRanks
	if command == "cachelosses" {
		kind = "losses"
		run = b.ranking.PopulateAllLosses
	}

	r.send(fmt.Sprintf("Caching the %s of every player of %s, this can take a while...", kind, b.ranking.Source().Label()))

	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		report, err := run(b.ctx)
		if errors.Is(err, rankcache.ErrBatchRunning) {
			r.send(describeError(err))
			return
		}
		if err != nil {
			slog.WarnContext(b.ctx, "cache job failed", "kind", kind, "job", report.JobID, "err", err)
		}
		r.send(describeReport(kind, report, err))
	}()
}
