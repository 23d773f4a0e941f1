package braacket

import (
	"math/rand"
	"testing"

	"braacket-bot/pkg/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAggregateLosses(t *testing.T) {
	got := AggregateLosses([]string{"A", "B", "A", "C", "B", "A"})
	expected := []LossCount{{"A", 3}, {"B", 2}, {"C", 1}}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	// ties keep first-seen order
	got = AggregateLosses([]string{"Z", "Y", "X", "Y", "Z"})
	require.Equal(t, []LossCount{{"Z", 2}, {"Y", 2}, {"X", 1}}, got)

	require.Empty(t, AggregateLosses(nil))
}

func TestAggregateLossesIdempotent(t *testing.T) {
	rndm := rand.New(rand.NewSource(7))
	names := []string{}
	for i := 0; i < 8; i++ {
		names = append(names, testutil.RandomName(rndm, 5))
	}

	for i := 0; i < 200; i++ {
		opponents := make([]string, rndm.Intn(40))
		for j := range opponents {
			opponents[j] = testutil.RandomPick(rndm, names)
		}

		aggregated := AggregateLosses(opponents)
		require.Equal(t, aggregated, MergeLossCounts(aggregated))

		total := 0
		for _, c := range aggregated {
			require.Positive(t, c.Count)
			total += c.Count
		}
		require.Equal(t, len(opponents), total)
	}
}

func TestMergeLossCounts(t *testing.T) {
	got := MergeLossCounts([]LossCount{{"A", 1}, {"B", 4}, {"A", 2}, {"C", 3}})
	require.Equal(t, []LossCount{{"B", 4}, {"A", 3}, {"C", 3}}, got)
}

func TestExtractLossOpponents(t *testing.T) {
	p := DefaultParser()
	doc := loadTestdata(t, "player_page.html", "https://braacket.com/league/DFWSMASH2/player/5E0B1F0C-0002")

	opponents := p.ExtractLossOpponents(doc)
	require.Equal(t, []string{"Alpha", "Bravo", "Alpha", "Charlie", "Bravo", "Alpha"}, opponents)
	require.Equal(t, []LossCount{{"Alpha", 3}, {"Bravo", 2}, {"Charlie", 1}}, AggregateLosses(opponents))
}

func TestResolveOpponentCharacters(t *testing.T) {
	p := DefaultParser()
	doc := loadTestdata(t, "player_page.html", "")

	require.Equal(t, []string{"Fox", "Falco"}, p.ResolveOpponentCharacters(doc, "Alpha"))
	require.Equal(t, []string{"Steve"}, p.ResolveOpponentCharacters(doc, "Bravo"))
	require.Empty(t, p.ResolveOpponentCharacters(doc, "Charlie"))
	require.Equal(t, []string{"Pikachu"}, p.ResolveOpponentCharacters(doc, "Delta"))
	require.Empty(t, p.ResolveOpponentCharacters(doc, "alpha"))
}

func TestCustomLossLiteral(t *testing.T) {
	sel := DefaultSelectors()
	sel.LossLiteral = "Win"
	doc := loadTestdata(t, "player_page.html", "")

	require.Equal(t, []string{"Delta"}, NewParser(sel).ExtractLossOpponents(doc))
}
