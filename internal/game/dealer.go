// internal/game/dealer.go
package game

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects how roles are dealt for a round.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeRandom   Mode = "random"
)

// ParseMode validates a client supplied mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case ModeStandard, ModeRandom:
		return m, nil
	}
	return "", InvalidConfiguration("unknown game mode %q", s)
}

// Scenario is one of the role patterns random mode can pick.
type Scenario string

const (
	ScenarioStandard       Scenario = "standard"
	ScenarioAllSpies       Scenario = "all_spies"
	ScenarioSameCard       Scenario = "same_card"
	ScenarioOneOutlierCard Scenario = "one_outlier_card"
	ScenarioDifferentCards Scenario = "different_cards"
	ScenarioMultiSpy       Scenario = "multi_spy"
)

// AllScenarios lists every known scenario in canonical order.
var AllScenarios = []Scenario{
	ScenarioStandard,
	ScenarioAllSpies,
	ScenarioSameCard,
	ScenarioOneOutlierCard,
	ScenarioDifferentCards,
	ScenarioMultiSpy,
}

// ToScenarios converts raw client values, dropping duplicates but keeping
// unknown values so callers can decide how strict to be.
func ToScenarios(values []string) []Scenario {
	if values == nil {
		return nil
	}
	out := make([]Scenario, 0, len(values))
	for _, v := range values {
		s := Scenario(strings.TrimSpace(v))
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// MultiSpyCount is the number of spies dealt by the multi_spy scenario.
func MultiSpyCount(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 6:
		return 2
	default:
		return 3
	}
}

// ResolveScenarios returns the candidate scenarios for a random round of n
// players. Unknown and repeated entries of allowed are dropped; if nothing
// usable remains the full set is used. Scenarios that cannot be dealt for n
// players are removed afterwards, so the result may be empty.
func ResolveScenarios(n int, allowed []Scenario) []Scenario {
	var selected []Scenario
	for _, s := range allowed {
		if slices.Contains(AllScenarios, s) && !slices.Contains(selected, s) {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		selected = slices.Clone(AllScenarios)
	}
	return slices.DeleteFunc(selected, func(s Scenario) bool {
		return (s == ScenarioMultiSpy && n <= 3) || (s == ScenarioOneOutlierCard && n < 2)
	})
}

// RoleAssignment is the outcome of one deal. Secrets has exactly one entry
// per dealt player; an empty value means the player is a spy and sees no card.
type RoleAssignment struct {
	Spies    []PlayerID
	Secrets  map[PlayerID]string
	Scenario Scenario
}

// SecretOf returns the card dealt to p, or false for spies and unknown players.
func (a RoleAssignment) SecretOf(p PlayerID) (string, bool) {
	card, ok := a.Secrets[p]
	return card, ok && card != ""
}

// Has reports whether p was part of the deal.
func (a RoleAssignment) Has(p PlayerID) bool {
	_, ok := a.Secrets[p]
	return ok
}

// Remove drops p from the assignment.
func (a *RoleAssignment) Remove(p PlayerID) {
	delete(a.Secrets, p)
	a.Spies = slices.DeleteFunc(a.Spies, func(s PlayerID) bool { return s == p })
}

// Dealer assigns hidden roles from a fixed card catalog.
type Dealer struct {
	cards []string
	rnd   Random
}

// NewDealer returns a dealer over the given card names. A nil rnd selects SecureRandom.
func NewDealer(cards []string, rnd Random) *Dealer {
	if rnd == nil {
		rnd = SecureRandom
	}
	return &Dealer{cards: slices.Clone(cards), rnd: rnd}
}

// Random exposes the dealer's source for related draws such as the starting player.
func (d *Dealer) Random() Random { return d.rnd }

// Deal assigns roles to players. Standard mode always deals one spy and leaves
// the scenario empty; random mode picks a scenario from allowed and records it.
func (d *Dealer) Deal(players []PlayerID, mode Mode, allowed []Scenario) (RoleAssignment, error) {
	if len(players) == 0 {
		return RoleAssignment{Secrets: map[PlayerID]string{}}, nil
	}
	if len(d.cards) == 0 {
		return RoleAssignment{}, InvalidConfiguration("card catalog is empty")
	}

	switch mode {
	case ModeStandard:
		return d.standard(players), nil
	case ModeRandom:
	default:
		return RoleAssignment{}, InvalidConfiguration("unknown game mode %q", mode)
	}

	candidates := ResolveScenarios(len(players), allowed)
	if len(candidates) == 0 {
		return RoleAssignment{}, InvalidConfiguration("not enough modes to choose from")
	}
	scenario := Choice(d.rnd, candidates)
	a, err := d.dealScenario(players, scenario)
	if err != nil {
		return RoleAssignment{}, err
	}
	a.Scenario = scenario
	return a, nil
}

func (d *Dealer) standard(players []PlayerID) RoleAssignment {
	return d.withSpies(players, []PlayerID{Choice(d.rnd, players)})
}

func (d *Dealer) withSpies(players, spies []PlayerID) RoleAssignment {
	card := Choice(d.rnd, d.cards)
	secrets := make(map[PlayerID]string, len(players))
	for _, p := range players {
		if slices.Contains(spies, p) {
			secrets[p] = ""
		} else {
			secrets[p] = card
		}
	}
	return RoleAssignment{Spies: spies, Secrets: secrets}
}

func (d *Dealer) dealScenario(players []PlayerID, scenario Scenario) (RoleAssignment, error) {
	secrets := make(map[PlayerID]string, len(players))
	switch scenario {
	case ScenarioStandard:
		return d.standard(players), nil

	case ScenarioAllSpies:
		for _, p := range players {
			secrets[p] = ""
		}
		return RoleAssignment{Spies: slices.Clone(players), Secrets: secrets}, nil

	case ScenarioSameCard:
		card := Choice(d.rnd, d.cards)
		for _, p := range players {
			secrets[p] = card
		}
		return RoleAssignment{Secrets: secrets}, nil

	case ScenarioOneOutlierCard:
		if len(d.cards) < 2 {
			return RoleAssignment{}, InvalidConfiguration("need at least 2 cards for the outlier scenario")
		}
		base := d.rnd.IntN(len(d.cards))
		// Draw from the n-1 other cards by skipping over the base index.
		other := d.rnd.IntN(len(d.cards) - 1)
		if other >= base {
			other++
		}
		outlier := Choice(d.rnd, players)
		for _, p := range players {
			secrets[p] = d.cards[base]
		}
		secrets[outlier] = d.cards[other]
		return RoleAssignment{Secrets: secrets}, nil

	case ScenarioDifferentCards:
		for _, p := range players {
			secrets[p] = Choice(d.rnd, d.cards)
		}
		return RoleAssignment{Secrets: secrets}, nil

	case ScenarioMultiSpy:
		return d.withSpies(players, Sample(d.rnd, players, MultiSpyCount(len(players)))), nil
	}
	return RoleAssignment{}, fmt.Errorf("unhandled scenario %q", scenario)
}
