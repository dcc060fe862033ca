package bot

import (
	"github.com/Proton-105/number-bot/internal/bot/handlers"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
)

// Command constants for Telegram bot commands.
const (
	CommandStart  = "/start"
	CommandCancel = "/cancel"
)

// RegisterRoutes installs the conversation table.
func RegisterRoutes(r *Router, f *handlers.Flows, labels *screen.Renderer) {
	anywhere := func(name string, p Predicate, h handlers.Handler) {
		r.Register(Route{Name: name, AnyState: true, Predicate: p, Role: RoleAny, Handler: h})
	}
	in := func(name string, st state.State, p Predicate, role Role, h handlers.Handler) {
		r.Register(Route{Name: name, State: st, Predicate: p, Role: role, Handler: h})
	}

	anywhere("start", TextEquals(CommandStart), f.Start())
	anywhere("cancel", TextEquals(CommandCancel), f.CancelCommand())
	anywhere("cancel", TextEquals(labels.Label("menu.cancel")), f.CancelCommand())
	anywhere("cancel_button", OnSelection(screen.ActionCancel), f.CancelButton())
	anywhere("back", OnSelection(screen.ActionBack), f.Back())
	anywhere("no_action", OnSelection(screen.ActionNone), f.NoAction())

	idle := state.StateIdle
	in("support", idle, TextEquals(labels.Label("menu.support")), RoleAny, f.Support())
	in("get_number", idle, TextEquals(labels.Label("menu.get_number")), RoleAny, f.GetStart())
	in("add_service", idle, TextEquals(labels.Label("menu.add_service")), RoleAdmin, f.AddServiceStart())
	in("add_country", idle, TextEquals(labels.Label("menu.add_country")), RoleAdmin, f.AddCountryStart())
	in("add_number", idle, TextEquals(labels.Label("menu.add_number")), RoleAdmin, f.AddNumberStart())
	in("remove_service", idle, TextEquals(labels.Label("menu.remove_service")), RoleAdmin, f.RemoveServiceStart())
	in("remove_country", idle, TextEquals(labels.Label("menu.remove_country")), RoleAdmin, f.RemoveCountryStart())
	in("num_limit", idle, TextEquals(labels.Label("menu.num_limit")), RoleAdmin, f.LimitStart())

	in("add_service", state.StateAddingServiceName, AnyText(), RoleAdmin, f.AddServiceName())

	in("add_country", state.StateAddingCountrySelectService, OnSelection(screen.ActionServiceForCountry), RoleAdmin, f.AddCountryService())
	in("add_country", state.StateAddingCountryName, AnyText(), RoleAdmin, f.AddCountryName())

	in("add_number", state.StateAddingNumberSelectService, OnSelection(screen.ActionServiceForNumbers), RoleAdmin, f.AddNumberService())
	in("add_number", state.StateAddingNumberSelectCountry, OnSelection(screen.ActionCountryForNumbers), RoleAdmin, f.AddNumberCountry())
	in("add_number", state.StateAddingNumberMethodChoice, OnSelection(screen.ActionMethodText), RoleAdmin, f.MethodText())
	in("add_number", state.StateAddingNumberMethodChoice, OnSelection(screen.ActionMethodFile), RoleAdmin, f.MethodFile())
	in("add_number", state.StateAddingNumberInputText, AnyText(), RoleAdmin, f.NumbersText())
	in("add_number", state.StateAddingNumberInputFile, AnyFile(), RoleAdmin, f.NumbersFile())

	in("remove_service", state.StateRemovingServiceSelect, OnSelection(screen.ActionServiceRemove), RoleAdmin, f.RemoveServiceSelect())

	in("remove_country", state.StateRemovingCountrySelectService, OnSelection(screen.ActionServiceForCountryRemove), RoleAdmin, f.RemoveCountryService())
	in("remove_country", state.StateRemovingCountrySelect, OnSelection(screen.ActionCountryRemove), RoleAdmin, f.RemoveCountrySelect())

	in("num_limit", state.StateSettingNumLimit, AnyText(), RoleAdmin, f.LimitInput())

	in("get_number", state.StateGettingNumberSelectService, OnSelection(screen.ActionServiceForGet), RoleAny, f.GetService())
	in("get_number", state.StateGettingNumberSelectCountry, OnSelection(screen.ActionCountryForGet), RoleAny, f.GetCountry())
	in("refresh", state.StateGettingNumberDisplay, OnSelection(screen.ActionRefresh), RoleAny, f.Refresh())
	in("change_country", state.StateGettingNumberDisplay, OnSelection(screen.ActionChangeCountry), RoleAny, f.ChangeCountry())
	in("change_service", state.StateGettingNumberDisplay, OnSelection(screen.ActionChangeService), RoleAny, f.ChangeService())
}
