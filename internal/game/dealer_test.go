package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCards = []string{"Knight", "Archers", "Goblins", "Giant", "P.E.K.K.A"}

func seats(n int) []PlayerID {
	out := make([]PlayerID, n)
	for i := range out {
		out[i] = Seat(i + 1)
	}
	return out
}

// distinctSecrets returns the set of non-empty secrets in a.
func distinctSecrets(a RoleAssignment) map[string]int {
	out := map[string]int{}
	for _, card := range a.Secrets {
		if card != "" {
			out[card]++
		}
	}
	return out
}

func TestDealStandard(t *testing.T) {
	d := NewDealer(testCards, nil)
	for n := MinPlayers; n <= MaxPlayers; n++ {
		t.Run(fmt.Sprintf("players=%d", n), func(t *testing.T) {
			players := seats(n)
			a, err := d.Deal(players, ModeStandard, nil)
			require.NoError(t, err)

			require.Len(t, a.Spies, 1)
			require.Len(t, a.Secrets, n)
			assert.Empty(t, a.Scenario, "standard mode reports no scenario")

			_, spyHasCard := a.SecretOf(a.Spies[0])
			assert.False(t, spyHasCard)

			cards := distinctSecrets(a)
			require.Len(t, cards, 1)
			for _, count := range cards {
				assert.Equal(t, n-1, count)
			}
		})
	}
}

func TestDealEmptyPlayers(t *testing.T) {
	a, err := NewDealer(testCards, nil).Deal(nil, ModeRandom, nil)
	require.NoError(t, err)
	assert.Empty(t, a.Spies)
	assert.Empty(t, a.Secrets)
	assert.Empty(t, a.Scenario)
}

func TestDealAllSpies(t *testing.T) {
	players := seats(5)
	a, err := NewDealer(testCards, nil).Deal(players, ModeRandom, []Scenario{ScenarioAllSpies})
	require.NoError(t, err)

	assert.Equal(t, ScenarioAllSpies, a.Scenario)
	assert.ElementsMatch(t, players, a.Spies)
	for _, p := range players {
		_, ok := a.SecretOf(p)
		assert.False(t, ok)
	}
}

func TestDealSameCard(t *testing.T) {
	a, err := NewDealer(testCards, nil).Deal(seats(6), ModeRandom, []Scenario{ScenarioSameCard})
	require.NoError(t, err)

	assert.Equal(t, ScenarioSameCard, a.Scenario)
	assert.Empty(t, a.Spies)
	cards := distinctSecrets(a)
	require.Len(t, cards, 1)
}

func TestDealOneOutlierCard(t *testing.T) {
	for i := 0; i < 50; i++ {
		a, err := NewDealer(testCards[:2], nil).Deal(seats(7), ModeRandom, []Scenario{ScenarioOneOutlierCard})
		require.NoError(t, err)

		assert.Empty(t, a.Spies)
		cards := distinctSecrets(a)
		require.Len(t, cards, 2)
		counts := []int{}
		for _, c := range cards {
			counts = append(counts, c)
		}
		assert.ElementsMatch(t, []int{1, 6}, counts)
	}
}

func TestDealOneOutlierCardSingleCardCatalog(t *testing.T) {
	_, err := NewDealer(testCards[:1], nil).Deal(seats(4), ModeRandom, []Scenario{ScenarioOneOutlierCard})
	require.Error(t, err)
	assert.Equal(t, KindInvalidConfiguration, KindOf(err))
}

func TestDealDifferentCards(t *testing.T) {
	a, err := NewDealer(testCards, nil).Deal(seats(8), ModeRandom, []Scenario{ScenarioDifferentCards})
	require.NoError(t, err)
	assert.Empty(t, a.Spies)
	for _, card := range a.Secrets {
		assert.Contains(t, testCards, card)
	}
}

func TestDealMultiSpy(t *testing.T) {
	expected := map[int]int{4: 2, 5: 2, 6: 2, 7: 3, 8: 3, 9: 3, 10: 3, 11: 3, 12: 3}
	d := NewDealer(testCards, nil)
	for n, want := range expected {
		a, err := d.Deal(seats(n), ModeRandom, []Scenario{ScenarioMultiSpy})
		require.NoError(t, err)
		assert.Equal(t, ScenarioMultiSpy, a.Scenario)
		assert.Len(t, a.Spies, want, "players=%d", n)

		for _, spy := range a.Spies {
			_, ok := a.SecretOf(spy)
			assert.False(t, ok)
		}
		assert.Len(t, distinctSecrets(a), 1)
	}
}

func TestMultiSpyCount(t *testing.T) {
	want := []int{1, 1, 1, 1, 2, 2, 2, 3, 3, 3, 3, 3, 3}
	for n, w := range want {
		assert.Equal(t, w, MultiSpyCount(n), "players=%d", n)
	}
}

func TestDealMultiSpyOnlyForThreePlayers(t *testing.T) {
	_, err := NewDealer(testCards, nil).Deal(seats(3), ModeRandom, []Scenario{ScenarioMultiSpy})
	require.Error(t, err)
	assert.Equal(t, KindInvalidConfiguration, KindOf(err))
	assert.EqualError(t, err, "not enough modes to choose from")
}

func TestDealRandomAlwaysReportsScenario(t *testing.T) {
	d := NewDealer(testCards, nil)
	for i := 0; i < 100; i++ {
		a, err := d.Deal(seats(4), ModeRandom, nil)
		require.NoError(t, err)
		assert.Contains(t, AllScenarios, a.Scenario)
	}
}

func TestDealUnknownMode(t *testing.T) {
	_, err := NewDealer(testCards, nil).Deal(seats(4), Mode("chaos"), nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestResolveScenarios(t *testing.T) {
	t.Run("dedupes keeping first-seen order", func(t *testing.T) {
		got := ResolveScenarios(5, []Scenario{ScenarioSameCard, "bogus", ScenarioAllSpies, ScenarioSameCard})
		assert.Equal(t, []Scenario{ScenarioSameCard, ScenarioAllSpies}, got)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []Scenario{ScenarioMultiSpy, ScenarioStandard, ScenarioMultiSpy, ScenarioStandard}
		once := ResolveScenarios(6, in)
		twice := ResolveScenarios(6, ResolveScenarios(6, in))
		assert.Equal(t, once, twice)
	})

	t.Run("nothing usable selects the full set", func(t *testing.T) {
		assert.Equal(t, AllScenarios, ResolveScenarios(5, []Scenario{"nope"}))
		assert.Equal(t, AllScenarios, ResolveScenarios(5, nil))
	})

	t.Run("small rooms lose multi_spy", func(t *testing.T) {
		assert.NotContains(t, ResolveScenarios(3, nil), ScenarioMultiSpy)
		assert.Contains(t, ResolveScenarios(4, nil), ScenarioMultiSpy)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		in := []Scenario{ScenarioMultiSpy, ScenarioSameCard}
		ResolveScenarios(3, in)
		assert.Equal(t, []Scenario{ScenarioMultiSpy, ScenarioSameCard}, in)
	})
}

func TestToScenarios(t *testing.T) {
	assert.Nil(t, ToScenarios(nil))
	assert.Equal(t, []Scenario{"same_card", "x"}, ToScenarios([]string{"same_card", " x ", "same_card"}))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("random")
	require.NoError(t, err)
	assert.Equal(t, ModeRandom, m)

	_, err = ParseMode("other")
	assert.Equal(t, KindInvalidConfiguration, KindOf(err))
}

func TestRoleAssignmentRemove(t *testing.T) {
	a, err := NewDealer(testCards, nil).Deal(seats(4), ModeRandom, []Scenario{ScenarioAllSpies})
	require.NoError(t, err)

	a.Remove(Seat(2))
	assert.False(t, a.Has(Seat(2)))
	assert.NotContains(t, a.Spies, Seat(2))
	assert.Len(t, a.Secrets, 3)
}
