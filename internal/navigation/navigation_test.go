package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/number-bot/internal/state"
)

func TestResolve_TwoBackPressesFromTextInput(t *testing.T) {
	ctx := state.Context{state.KeyService: "WhatsApp", state.KeyCountry: "US"}

	first := Resolve(state.StateAddingNumberInputText, ctx)
	assert.Equal(t, OutcomeMoved, first.Outcome)
	assert.Equal(t, state.StateAddingNumberMethodChoice, first.Target)
	assert.Equal(t, ctx, first.Context)

	second := Resolve(first.Target, first.Context)
	assert.Equal(t, OutcomeMoved, second.Outcome)
	assert.Equal(t, state.StateAddingNumberSelectCountry, second.Target)
	assert.Equal(t, state.Context{state.KeyService: "WhatsApp"}, second.Context)

	third := Resolve(second.Target, second.Context)
	assert.Equal(t, state.StateAddingNumberSelectService, third.Target)
	assert.Empty(t, third.Context)

	fourth := Resolve(third.Target, third.Context)
	assert.Equal(t, OutcomeCancelled, fourth.Outcome)
	assert.Equal(t, state.StateIdle, fourth.Target)
}

func TestResolve_Table(t *testing.T) {
	full := state.Context{state.KeyService: "S", state.KeyCountry: "C"}

	testCases := []struct {
		name    string
		current state.State
		ctx     state.Context
		target  state.State
		context state.Context
		outcome Outcome
	}{
		{name: "file input", current: state.StateAddingNumberInputFile, ctx: full, target: state.StateAddingNumberMethodChoice, context: full, outcome: OutcomeMoved},
		{name: "country name", current: state.StateAddingCountryName, ctx: state.Context{state.KeyService: "S"}, target: state.StateAddingCountrySelectService, context: state.Context{}, outcome: OutcomeMoved},
		{name: "get number country", current: state.StateGettingNumberSelectCountry, ctx: full, target: state.StateGettingNumberSelectService, context: state.Context{}, outcome: OutcomeMoved},
		{name: "remove country", current: state.StateRemovingCountrySelect, ctx: full, target: state.StateRemovingCountrySelectService, context: state.Context{}, outcome: OutcomeMoved},
		{name: "service name cancels", current: state.StateAddingServiceName, ctx: nil, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCancelled},
		{name: "limit cancels", current: state.StateSettingNumLimit, ctx: nil, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCancelled},
		{name: "display cancels", current: state.StateGettingNumberDisplay, ctx: full, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCancelled},
		{name: "remove service cancels", current: state.StateRemovingServiceSelect, ctx: nil, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCancelled},
		{name: "idle", current: state.StateIdle, ctx: nil, target: state.StateIdle, context: state.Context{}, outcome: OutcomeIdle},
		{name: "lost country", current: state.StateAddingNumberInputText, ctx: state.Context{state.KeyService: "S"}, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCorrupted},
		{name: "lost service", current: state.StateAddingNumberMethodChoice, ctx: state.Context{state.KeyCountry: "C"}, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCorrupted},
		{name: "empty value counts as lost", current: state.StateAddingNumberInputFile, ctx: state.Context{state.KeyService: "S", state.KeyCountry: ""}, target: state.StateIdle, context: state.Context{}, outcome: OutcomeCorrupted},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(tc.current, tc.ctx)
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.target, res.Target)
			assert.Equal(t, tc.context, res.Context)
		})
	}
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	ctx := state.Context{state.KeyService: "S", state.KeyCountry: "C"}
	_ = Resolve(state.StateAddingNumberMethodChoice, ctx)
	assert.Equal(t, state.Context{state.KeyService: "S", state.KeyCountry: "C"}, ctx)
}

func TestParentsStayWithinFlow(t *testing.T) {
	for child, e := range parents {
		assert.True(t, state.IsTransitionAllowed(child, e.parent), "%s -> %s must be a valid transition", child, e.parent)
	}

	e, ok := parents[state.StateAddingNumberMethodChoice]
	assert.True(t, ok)
	assert.Equal(t, state.StateAddingNumberSelectCountry, e.parent)
	assert.Equal(t, []string{state.KeyService}, e.keep)

	_, ok = parents[state.StateIdle]
	assert.False(t, ok)
}
