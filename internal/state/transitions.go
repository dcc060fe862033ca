package state

// validTransitions lists the forward, back and change-selection moves of every flow.
// Moving to idle and staying in place are always permitted.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAddingServiceName,
		StateAddingCountrySelectService,
		StateAddingNumberSelectService,
		StateRemovingServiceSelect,
		StateRemovingCountrySelectService,
		StateSettingNumLimit,
		StateGettingNumberSelectService,
	},
	StateAddingCountrySelectService: {
		StateAddingCountryName,
	},
	StateAddingCountryName: {
		StateAddingCountrySelectService,
	},
	StateAddingNumberSelectService: {
		StateAddingNumberSelectCountry,
	},
	StateAddingNumberSelectCountry: {
		StateAddingNumberMethodChoice,
		StateAddingNumberSelectService,
	},
	StateAddingNumberMethodChoice: {
		StateAddingNumberInputText,
		StateAddingNumberInputFile,
		StateAddingNumberSelectCountry,
	},
	StateAddingNumberInputText: {
		StateAddingNumberMethodChoice,
	},
	StateAddingNumberInputFile: {
		StateAddingNumberMethodChoice,
	},
	StateRemovingCountrySelectService: {
		StateRemovingCountrySelect,
	},
	StateRemovingCountrySelect: {
		StateRemovingCountrySelectService,
	},
	StateGettingNumberSelectService: {
		StateGettingNumberSelectCountry,
	},
	StateGettingNumberSelectCountry: {
		StateGettingNumberDisplay,
		StateGettingNumberSelectService,
	},
	StateGettingNumberDisplay: {
		StateGettingNumberSelectCountry,
		StateGettingNumberSelectService,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle || from == to {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
