package state

import "time"

// State represents a named point in the conversation.
type State string

const (
	// StateIdle indicates that no flow is active for the session.
	StateIdle State = "idle"

	StateAddingServiceName            State = "adding_service_name"
	StateAddingCountrySelectService   State = "adding_country_select_service"
	StateAddingCountryName            State = "adding_country_name"
	StateAddingNumberSelectService    State = "adding_number_select_service"
	StateAddingNumberSelectCountry    State = "adding_number_select_country"
	StateAddingNumberMethodChoice     State = "adding_number_method_choice"
	StateAddingNumberInputText        State = "adding_number_input_text"
	StateAddingNumberInputFile        State = "adding_number_input_file"
	StateRemovingServiceSelect        State = "removing_service_select"
	StateRemovingCountrySelectService State = "removing_country_select_service"
	StateRemovingCountrySelect        State = "removing_country_select"
	StateSettingNumLimit              State = "setting_num_limit"

	StateGettingNumberSelectService State = "getting_number_select_service"
	StateGettingNumberSelectCountry State = "getting_number_select_country"
	StateGettingNumberDisplay       State = "getting_number_display"
)

var allStates = []State{
	StateIdle,
	StateAddingServiceName,
	StateAddingCountrySelectService,
	StateAddingCountryName,
	StateAddingNumberSelectService,
	StateAddingNumberSelectCountry,
	StateAddingNumberMethodChoice,
	StateAddingNumberInputText,
	StateAddingNumberInputFile,
	StateRemovingServiceSelect,
	StateRemovingCountrySelectService,
	StateRemovingCountrySelect,
	StateSettingNumLimit,
	StateGettingNumberSelectService,
	StateGettingNumberSelectCountry,
	StateGettingNumberDisplay,
}

// All returns every named state, idle first.
func All() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// Valid reports whether s belongs to the closed enumeration.
func (s State) Valid() bool {
	for _, known := range allStates {
		if known == s {
			return true
		}
	}
	return false
}

// Context keys carried between screens of a flow.
const (
	KeyService = "service_name"
	KeyCountry = "country_name"
)

// Context is the small bag of selections a session carries between screens.
type Context map[string]string

// Get returns the value for key and whether it is present and non-empty.
func (c Context) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c[key]
	return v, ok && v != ""
}

// Clone returns an independent copy; nil stays nil.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Only returns a copy holding just the listed keys.
func (c Context) Only(keys ...string) Context {
	out := make(Context, len(keys))
	for _, key := range keys {
		if v, ok := c.Get(key); ok {
			out[key] = v
		}
	}
	return out
}

// UserState captures the conversation state for one session.
type UserState struct {
	UserID       int64     `json:"user_id"`
	CurrentState State     `json:"current_state"`
	Context      Context   `json:"context,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Service returns the selected service name, if any.
func (u *UserState) Service() (string, bool) {
	if u == nil {
		return "", false
	}
	return u.Context.Get(KeyService)
}

// Country returns the selected country name, if any.
func (u *UserState) Country() (string, bool) {
	if u == nil {
		return "", false
	}
	return u.Context.Get(KeyCountry)
}

func idleState(userID int64) *UserState {
	return &UserState{UserID: userID, CurrentState: StateIdle, Context: Context{}}
}

func cloneState(st *UserState) *UserState {
	if st == nil {
		return nil
	}
	out := *st
	out.Context = st.Context.Clone()
	return &out
}
