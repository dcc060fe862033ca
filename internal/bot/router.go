package bot

import (
	"log/slog"
	"sync"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
)

// Role is the caller role a route requires.
type Role int

const (
	RoleAny Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "any"
}

// Predicate decides whether an event belongs to a route.
type Predicate struct {
	kind   handlers.EventKind
	text   string
	action screen.Action
	exact  bool
}

// TextEquals matches a text event with exactly this text.
func TextEquals(text string) Predicate {
	return Predicate{kind: handlers.EventText, text: text, exact: true}
}

// AnyText matches every text event.
func AnyText() Predicate {
	return Predicate{kind: handlers.EventText}
}

// OnSelection matches a button press carrying action.
func OnSelection(action screen.Action) Predicate {
	return Predicate{kind: handlers.EventSelection, action: action, exact: true}
}

// AnySelection matches every button press.
func AnySelection() Predicate {
	return Predicate{kind: handlers.EventSelection}
}

// AnyFile matches every uploaded document.
func AnyFile() Predicate {
	return Predicate{kind: handlers.EventFile}
}

// Match reports whether ev satisfies the predicate.
func (p Predicate) Match(ev handlers.Event) bool {
	if ev.Kind != p.kind {
		return false
	}
	if !p.exact {
		return true
	}

	switch p.kind {
	case handlers.EventText:
		return ev.Text == p.text
	case handlers.EventSelection:
		return ev.Selection.Action == p.action
	default:
		return true
	}
}

// Route binds a state and an event predicate to a handler.
type Route struct {
	Name string
	// State is ignored when AnyState is set.
	State     state.State
	AnyState  bool
	Predicate Predicate
	Role      Role
	Handler   handlers.Handler
}

func (r Route) specificity() int {
	score := 0
	if r.Predicate.exact {
		score += 2
	}
	if !r.AnyState {
		score++
	}
	return score
}

func (r Route) matches(st state.State, ev handlers.Event) bool {
	if !r.AnyState && r.State != st {
		return false
	}
	return r.Predicate.Match(ev)
}

// Router holds the route table and the middleware chain.
type Router struct {
	mu          sync.RWMutex
	routes      []Route
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with an empty table.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		routes:      make([]Route, 0),
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// Register appends a route. Among equally specific matches the earliest registered wins.
func (r *Router) Register(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Match returns the most specific route for ev in state st.
// An exact predicate outranks an exact state, so wildcard commands win over free-text input.
func (r *Router) Match(st state.State, ev handlers.Event) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best  Route
		score = -1
	)
	for _, route := range r.routes {
		if !route.matches(st, ev) {
			continue
		}
		if s := route.specificity(); s > score {
			best, score = route, s
		}
	}

	return best, score >= 0
}

// Len reports the number of registered routes.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
