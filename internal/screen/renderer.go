package screen

import (
	"html"
	"strconv"
	"strings"

	"github.com/Proton-105/number-bot/internal/i18n"
	"github.com/Proton-105/number-bot/internal/state"
)

type listScreen struct {
	prompt string
	action Action
}

var serviceLists = map[state.State]listScreen{
	state.StateAddingCountrySelectService:   {prompt: "prompt.pick_service_add_country", action: ActionServiceForCountry},
	state.StateAddingNumberSelectService:    {prompt: "prompt.pick_service_add_number", action: ActionServiceForNumbers},
	state.StateRemovingServiceSelect:        {prompt: "prompt.pick_service_remove", action: ActionServiceRemove},
	state.StateRemovingCountrySelectService: {prompt: "prompt.pick_service_remove_country", action: ActionServiceForCountryRemove},
	state.StateGettingNumberSelectService:   {prompt: "prompt.pick_service_get", action: ActionServiceForGet},
}

var countryLists = map[state.State]listScreen{
	state.StateAddingNumberSelectCountry:  {prompt: "prompt.pick_country_add_number", action: ActionCountryForNumbers},
	state.StateRemovingCountrySelect:      {prompt: "prompt.pick_country_remove", action: ActionCountryRemove},
	state.StateGettingNumberSelectCountry: {prompt: "prompt.pick_country_get", action: ActionCountryForGet},
}

// Renderer builds payloads. It holds no state besides the translator and is safe for concurrent use.
type Renderer struct {
	tr i18n.Translator
}

// NewRenderer creates a Renderer speaking through tr.
func NewRenderer(tr i18n.Translator) *Renderer {
	return &Renderer{tr: tr}
}

// Label returns a translated label, used by the router to match menu texts.
func (r *Renderer) Label(key string) string {
	return r.tr.T(key)
}

// Render produces the screen shown while a session sits in st.
func (r *Renderer) Render(st state.State, ctx state.Context, snap Snapshot) Payload {
	service, _ := ctx.Get(state.KeyService)
	country, _ := ctx.Get(state.KeyCountry)

	if list, ok := serviceLists[st]; ok {
		return r.serviceList(list, snap.Services)
	}
	if list, ok := countryLists[st]; ok {
		return r.countryList(list, service, snap)
	}

	switch st {
	case state.StateAddingServiceName:
		return Payload{Text: r.tr.T("prompt.service_name"), Rows: [][]Option{row(r.cancel())}}
	case state.StateAddingCountryName:
		return Payload{
			Text: r.tr.F("prompt.country_name", "service", esc(service)),
			Rows: [][]Option{row(r.back("button.back_services"))},
		}
	case state.StateAddingNumberMethodChoice:
		return Payload{
			Text: r.tr.F("prompt.method", "service", esc(service), "country", esc(country)),
			Rows: [][]Option{
				row(r.option("button.method_text", ActionMethodText)),
				row(r.option("button.method_file", ActionMethodFile)),
				row(r.back("button.back_countries")),
			},
		}
	case state.StateAddingNumberInputText:
		return Payload{Text: r.tr.T("prompt.numbers_text"), Rows: [][]Option{row(r.back("button.back_method"))}}
	case state.StateAddingNumberInputFile:
		return Payload{Text: r.tr.T("prompt.numbers_file"), Rows: [][]Option{row(r.back("button.back_method"))}}
	case state.StateSettingNumLimit:
		return Payload{
			Text: r.tr.F("prompt.num_limit", "limit", strconv.Itoa(snap.PageSize)),
			Rows: [][]Option{row(r.cancel())},
		}
	case state.StateGettingNumberDisplay:
		return r.Display(service, country, snap)
	default:
		return r.Notice("notice.cancelled")
	}
}

// Display renders a page of freshly taken numbers.
func (r *Renderer) Display(service, country string, snap Snapshot) Payload {
	var b strings.Builder
	b.WriteString(r.tr.F("display.service", "service", esc(service)))

	if len(snap.Page) == 0 {
		b.WriteString(r.tr.F("display.empty", "country", esc(country)))
	} else {
		b.WriteString(r.tr.F("display.country", "country", esc(country), "count", strconv.Itoa(len(snap.Page))))
		for _, number := range snap.Page {
			b.WriteString(r.tr.F("display.number", "country", esc(country), "number", esc(number)))
		}
	}

	rows := make([][]Option, 0, 3)
	switch {
	case snap.Remaining > 0:
		rows = append(rows, row(Option{
			Label:     r.tr.F("button.refresh", "limit", strconv.Itoa(snap.PageSize)),
			Selection: Selection{Action: ActionRefresh},
		}))
	case len(snap.Page) > 0:
		rows = append(rows, row(r.option("button.no_more_numbers", ActionNone)))
	default:
		rows = append(rows, row(r.option("button.no_numbers", ActionNone)))
	}

	rows = append(rows,
		row(r.option("button.change_country", ActionChangeCountry), r.option("button.change_service", ActionChangeService)),
		row(r.option("button.back_main", ActionCancel)),
	)

	return Payload{Text: strings.TrimRight(b.String(), "\n"), Rows: rows}
}

// Notice renders a plain message. pairs fill {placeholders}; values are HTML escaped.
func (r *Renderer) Notice(key string, pairs ...string) Payload {
	escaped := make([]string, len(pairs))
	for i, v := range pairs {
		if i%2 == 1 {
			v = esc(v)
		}
		escaped[i] = v
	}
	return Payload{Text: r.tr.F(key, escaped...)}
}

// Retry renders a notice that keeps the current screen's escape hatch.
func (r *Renderer) Retry(st state.State, key string, pairs ...string) Payload {
	p := r.Notice(key, pairs...)
	switch st {
	case state.StateAddingCountryName:
		p.Rows = [][]Option{row(r.back("button.back_services"))}
	case state.StateAddingNumberInputText, state.StateAddingNumberInputFile:
		p.Rows = [][]Option{row(r.back("button.back_method"))}
	default:
		p.Rows = [][]Option{row(r.cancel())}
	}
	return p
}

// MainMenu greets the user and attaches the role's reply keyboard.
func (r *Renderer) MainMenu(admin bool, name string) Payload {
	if admin {
		return Payload{
			Text:       r.tr.F("greeting.admin", "name", esc(name)),
			Keyboard:   KeyboardAdminMenu,
			NewMessage: true,
		}
	}
	return Payload{
		Text:       r.tr.F("greeting.user", "name", esc(name)),
		Keyboard:   KeyboardUserMenu,
		NewMessage: true,
	}
}

// MenuRows returns the reply keyboard labels for a role.
func (r *Renderer) MenuRows(admin bool) [][]string {
	if admin {
		return [][]string{
			{r.tr.T("menu.add_number"), r.tr.T("menu.add_service")},
			{r.tr.T("menu.remove_service"), r.tr.T("menu.add_country")},
			{r.tr.T("menu.remove_country"), r.tr.T("menu.num_limit")},
			{r.tr.T("menu.get_number"), r.tr.T("menu.support")},
			{r.tr.T("menu.cancel")},
		}
	}
	return [][]string{
		{r.tr.T("menu.get_number"), r.tr.T("menu.support")},
		{r.tr.T("menu.cancel")},
	}
}

// Support links to the admin's chat.
func (r *Renderer) Support(adminUsername string) Payload {
	return Payload{
		Text: r.tr.T("notice.support"),
		Rows: [][]Option{row(Option{
			Label: r.tr.T("button.contact_admin"),
			URL:   "https://t.me/" + strings.TrimPrefix(adminUsername, "@"),
		})},
		NewMessage: true,
	}
}

func (r *Renderer) serviceList(list listScreen, services []string) Payload {
	rows := make([][]Option, 0, len(services)+1)
	if len(services) == 0 {
		rows = append(rows, row(r.option("button.no_services", ActionNone)))
	}
	for _, name := range services {
		rows = append(rows, row(Option{Label: name, Selection: Selection{Action: list.action, Service: name}}))
	}
	rows = append(rows, row(r.cancel()))

	return Payload{Text: r.tr.T(list.prompt), Rows: rows}
}

func (r *Renderer) countryList(list listScreen, service string, snap Snapshot) Payload {
	text := r.tr.F(list.prompt, "service", esc(service))

	if !snap.ServiceFound {
		return Payload{Text: text, Rows: [][]Option{
			row(r.option("button.service_not_found", ActionNone)),
			row(r.back("button.back_services")),
		}}
	}

	rows := make([][]Option, 0, len(snap.Countries)+1)
	if len(snap.Countries) == 0 {
		rows = append(rows, row(r.option("button.no_countries", ActionNone)))
	}
	for _, name := range snap.Countries {
		rows = append(rows, row(Option{
			Label:     name,
			Selection: Selection{Action: list.action, Service: service, Country: name},
		}))
	}
	rows = append(rows, row(r.back("button.back_services")))

	return Payload{Text: text, Rows: rows}
}

func (r *Renderer) option(key string, action Action) Option {
	return Option{Label: r.tr.T(key), Selection: Selection{Action: action}}
}

func (r *Renderer) cancel() Option {
	return r.option("button.cancel", ActionCancel)
}

func (r *Renderer) back(key string) Option {
	return r.option(key, ActionBack)
}

func esc(s string) string {
	return html.EscapeString(s)
}
