// Package icons maps character names to discord emoji tokens.
package icons

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

//go:embed emojis.json
var defaultTable []byte

var emojiToken = regexp.MustCompile(`^<a?:[A-Za-z0-9_]+:[0-9]+>$`)

// Table is an immutable character name to emoji lookup.
type Table struct {
	emojis map[string]string
}

// Default returns the table of every Smash Ultimate character emoji of the bot's server.
func Default() Table {
	table, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded emoji table is invalid: %v", err))
	}
	return table
}

func Parse(raw []byte) (Table, error) {
	emojis := map[string]string{}
	err := json.Unmarshal(raw, &emojis)
	if err != nil {
		return Table{}, fmt.Errorf("decode emoji table: %w", err)
	}
	delete(emojis, "")
	return Table{emojis: emojis}, nil
}

// Load reads a table from a json file, entries in the file replace the defaults.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	overrides, err := Parse(raw)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	table := Default()
	for name, emoji := range overrides.emojis {
		table.emojis[name] = emoji
	}
	return table, nil
}

func (t Table) Len() int {
	return len(t.emojis)
}

// Lookup returns the emoji of a character. Names that already are emoji tokens are
// returned as is, unknown names resolve to a visible placeholder.
func (t Table) Lookup(character string) string {
	if emojiToken.MatchString(character) {
		return character
	}
	emoji, ok := t.emojis[character]
	if ok {
		return emoji
	}
	return "No emoji found for " + character
}

// Render joins the emojis of every character.
func (t Table) Render(characters []string) string {
	var out strings.Builder
	for _, c := range characters {
		out.WriteString(t.Lookup(c))
	}
	return out.String()
}
