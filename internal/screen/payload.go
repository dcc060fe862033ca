// Package screen turns a session's state and an inventory snapshot into display payloads.
package screen

// Action names what a button press asks for.
type Action string

const (
	ActionNone          Action = "none"
	ActionCancel        Action = "cancel"
	ActionBack          Action = "back"
	ActionRefresh       Action = "refresh"
	ActionChangeCountry Action = "change_country"
	ActionChangeService Action = "change_service"
	ActionMethodText    Action = "method_text"
	ActionMethodFile    Action = "method_file"

	ActionServiceForCountry       Action = "svc_add_country"
	ActionServiceForNumbers       Action = "svc_add_number"
	ActionServiceRemove           Action = "svc_remove"
	ActionServiceForCountryRemove Action = "svc_remove_country"
	ActionServiceForGet           Action = "svc_get"

	ActionCountryForNumbers Action = "ctry_add_number"
	ActionCountryRemove     Action = "ctry_remove"
	ActionCountryForGet     Action = "ctry_get"
)

// Actions lists every action in a stable order.
func Actions() []Action {
	return []Action{
		ActionNone, ActionCancel, ActionBack, ActionRefresh, ActionChangeCountry, ActionChangeService,
		ActionMethodText, ActionMethodFile,
		ActionServiceForCountry, ActionServiceForNumbers, ActionServiceRemove, ActionServiceForCountryRemove, ActionServiceForGet,
		ActionCountryForNumbers, ActionCountryRemove, ActionCountryForGet,
	}
}

// Selection is the typed meaning of a button press.
type Selection struct {
	Action  Action
	Service string
	Country string
}

// Option is one button. URL buttons carry no selection.
type Option struct {
	Label     string
	Selection Selection
	URL       string
}

// Keyboard picks the kind of markup attached to a payload.
type Keyboard int

const (
	KeyboardInline Keyboard = iota
	KeyboardAdminMenu
	KeyboardUserMenu
)

// Payload is what the transport shows to the user.
type Payload struct {
	Text     string
	Rows     [][]Option
	Keyboard Keyboard
	// NewMessage asks the transport to post a fresh message instead of editing the pressed one.
	NewMessage bool
}

// Snapshot is the slice of the inventory a screen needs.
type Snapshot struct {
	Services     []string
	Countries    []string
	ServiceFound bool
	PageSize     int
	// Page holds the numbers just taken for the display screen.
	Page      []string
	Remaining int
}

func row(options ...Option) []Option {
	return options
}
