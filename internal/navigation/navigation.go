// Package navigation resolves the "back" button into the previous screen of a flow.
package navigation

import "github.com/Proton-105/number-bot/internal/state"

// Outcome classifies what a back press did.
type Outcome int

const (
	// OutcomeMoved means the session steps up to its parent screen.
	OutcomeMoved Outcome = iota
	// OutcomeCancelled means the state has no parent and the flow ends.
	OutcomeCancelled
	// OutcomeCorrupted means the parent screen needs context the session lost.
	OutcomeCorrupted
	// OutcomeIdle means there was nothing to go back from.
	OutcomeIdle
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMoved:
		return "moved"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeCorrupted:
		return "corrupted"
	case OutcomeIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Result is the session the back press leads to. Target is the screen to render;
// for anything but OutcomeMoved it is idle and Context is empty.
type Result struct {
	Target  state.State
	Context state.Context
	Outcome Outcome
}

type edge struct {
	parent state.State
	keep   []string
}

// step is one screen level of a flow: the states showing it and the context keys it relies on.
type step struct {
	states []state.State
	keys   []string
}

// flows lists every flow whose screens can be walked backwards, outermost level first.
var flows = [][]step{
	{
		{states: []state.State{state.StateAddingCountrySelectService}},
		{states: []state.State{state.StateAddingCountryName}, keys: []string{state.KeyService}},
	},
	{
		{states: []state.State{state.StateAddingNumberSelectService}},
		{states: []state.State{state.StateAddingNumberSelectCountry}, keys: []string{state.KeyService}},
		{states: []state.State{state.StateAddingNumberMethodChoice}, keys: []string{state.KeyService, state.KeyCountry}},
		{
			states: []state.State{state.StateAddingNumberInputText, state.StateAddingNumberInputFile},
			keys:   []string{state.KeyService, state.KeyCountry},
		},
	},
	{
		{states: []state.State{state.StateRemovingCountrySelectService}},
		{states: []state.State{state.StateRemovingCountrySelect}, keys: []string{state.KeyService}},
	},
	{
		{states: []state.State{state.StateGettingNumberSelectService}},
		{states: []state.State{state.StateGettingNumberSelectCountry}, keys: []string{state.KeyService}},
	},
}

var parents = buildParents(flows)

func buildParents(flows [][]step) map[state.State]edge {
	table := make(map[state.State]edge)
	for _, flow := range flows {
		for i := 1; i < len(flow); i++ {
			up := flow[i-1]
			for _, st := range flow[i].states {
				table[st] = edge{parent: up.states[0], keep: up.keys}
			}
		}
	}
	return table
}

// Resolve computes where a back press from current leads. It never touches the inventory.
func Resolve(current state.State, ctx state.Context) Result {
	if current == "" || current == state.StateIdle {
		return Result{Target: state.StateIdle, Context: state.Context{}, Outcome: OutcomeIdle}
	}

	e, ok := parents[current]
	if !ok {
		return Result{Target: state.StateIdle, Context: state.Context{}, Outcome: OutcomeCancelled}
	}

	kept := ctx.Only(e.keep...)
	if len(kept) != len(e.keep) {
		return Result{Target: state.StateIdle, Context: state.Context{}, Outcome: OutcomeCorrupted}
	}

	return Result{Target: e.parent, Context: kept, Outcome: OutcomeMoved}
}
