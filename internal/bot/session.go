package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Open connects to discord and routes every new message to the bot.
func Open(token string, b *Bot) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("bot is online", "user", r.User.String(), "guilds", len(r.Guilds))
	})
	session.AddHandler(b.OnMessageCreate)

	err = session.Open()
	if err != nil {
		return nil, fmt.Errorf("open discord session: %w", err)
	}
	return session, nil
}
