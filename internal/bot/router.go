package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// Labels recognizes reply keyboard labels in any language.
type Labels interface {
	IsLabel(name, text string) bool
}

// commandRoute matches a slash command. build turns the regexp submatches into the
// handler arguments; returning ok=false falls through to the next route.
type commandRoute struct {
	name    string
	pattern *regexp.Regexp
	handler flows.Handler
	build   func(m []string) ([]string, bool)
}

type labelRoute struct {
	label   string
	name    string
	handler flows.Handler
}

type callbackRoute struct {
	name      string
	handler   flows.Handler
	refreshes bool
}

// Router matches every update to one route and runs it through the middleware chain.
//
// Precedence: /start and cancel work in any state; inside a wizard every message goes
// to the state handler; otherwise forwards, reply-keyboard labels and slash commands
// are tried before the catch-all.
type Router struct {
	mu          sync.RWMutex
	fsm         state.StateMachine
	labels      Labels
	dispatcher  *Dispatcher
	start       flows.Handler
	cancel      flows.Handler
	forward     flows.Handler
	unknown     flows.Handler
	commands    []commandRoute
	labelRoutes []labelRoute
	callbacks   map[string]callbackRoute
	states      map[state.State]flows.Handler
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(fsm state.StateMachine, labels Labels, dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		fsm:        fsm,
		labels:     labels,
		dispatcher: dispatcher,
		callbacks:  make(map[string]callbackRoute),
		states:     make(map[state.State]flows.Handler),
		log:        log,
	}
}

// SetSpecial registers the handlers that do not come from a table.
func (r *Router) SetSpecial(start, cancel, forward, unknown flows.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start, r.cancel, r.forward, r.unknown = start, cancel, forward, unknown
}

// RegisterCommand adds a slash command. Commands are tried in registration order.
func (r *Router) RegisterCommand(name, pattern string, h flows.Handler, build func(m []string) ([]string, bool)) {
	if build == nil {
		build = func(m []string) ([]string, bool) { return m[1:], true }
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, commandRoute{name: name, pattern: regexp.MustCompile(pattern), handler: h, build: build})
}

// RegisterLabel adds a reply keyboard button.
func (r *Router) RegisterLabel(label string, h flows.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labelRoutes = append(r.labelRoutes, labelRoute{label: label, name: "label_" + label, handler: h})
}

// RegisterCallback adds an inline button by its callback unique.
func (r *Router) RegisterCallback(unique string, h flows.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[unique] = callbackRoute{name: "cb_" + unique, handler: h}
}

// RegisterRefreshingCallback adds an inline button that changes the sender's profile.
func (r *Router) RegisterRefreshingCallback(unique string, h flows.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[unique] = callbackRoute{name: "cb_" + unique, handler: h, refreshes: true}
}

// RegisterStateHandler registers the handler of a wizard step.
func (r *Router) RegisterStateHandler(s state.State, h flows.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[s] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the incoming update to the matching handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		return nil
	}
	ctx := handlers.Context(c)

	st, err := r.loadState(ctx, c.Sender().ID)
	if err != nil {
		// the chain answers with the generic error and resets the session
		handlers.SetRoute(c, &handlers.Route{Name: "state_unavailable", Public: true})
		return r.applyMiddlewares(func(telebot.Context) error {
			return fmt.Errorf("load state: %w", err)
		})(c)
	}

	route := r.match(c, st)
	if route == nil {
		if c.Callback() != nil {
			return c.Respond()
		}
		return nil
	}

	handlers.SetRoute(c, route)
	handlers.SetState(c, st)
	return r.applyMiddlewares(r.dispatcher.Handle)(c)
}

func (r *Router) loadState(ctx context.Context, telegramID int64) (*state.UserState, error) {
	if r.fsm == nil {
		return nil, nil
	}
	st, err := r.fsm.GetState(ctx, telegramID)
	if errors.Is(err, state.ErrStateNotFound) {
		return nil, nil
	}
	return st, err
}

func (r *Router) match(c telebot.Context, st *state.UserState) *handlers.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cb := c.Callback(); cb != nil {
		return r.matchCallback(cb, st)
	}
	return r.matchMessage(c, st)
}

func (r *Router) matchCallback(cb *telebot.Callback, st *state.UserState) *handlers.Route {
	unique, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil {
		return nil
	}
	cr, ok := r.callbacks[unique]
	if !ok {
		r.log.Info("no callback handler found", slog.String("data", cb.Data))
		return nil
	}
	return &handlers.Route{
		Name:       cr.name,
		Handler:    cr.handler,
		Args:       keyboard.Split(data),
		Interrupts: st.Current() != state.StateIdle,
		Refreshes:  cr.refreshes,
	}
}

func (r *Router) matchMessage(c telebot.Context, st *state.UserState) *handlers.Route {
	msg := c.Message()
	text := strings.TrimSpace(c.Text())

	if text == CommandStart || strings.HasPrefix(text, CommandStart+" ") {
		var args []string
		if payload := strings.TrimSpace(strings.TrimPrefix(text, CommandStart)); payload != "" {
			args = []string{payload}
		}
		return &handlers.Route{Name: "start", Handler: r.start, Args: args, Public: true, Refreshes: true}
	}
	if text == CommandCancel || (text != "" && r.labels.IsLabel("cancel", text)) {
		return &handlers.Route{Name: "cancel", Handler: r.cancel}
	}

	if current := st.Current(); current != state.StateIdle {
		if h, ok := r.states[current]; ok {
			return &handlers.Route{Name: "state_" + string(current), Handler: h, Refreshes: current == state.StateConfirmPolicy}
		}
		r.log.Warn("no handler registered for state", slog.String("state", string(current)))
		return &handlers.Route{Name: "cancel", Handler: r.cancel}
	}

	if msg != nil && msg.OriginalSender != nil && r.forward != nil {
		return &handlers.Route{Name: "forward", Handler: r.forward, Args: []string{itoa(msg.OriginalSender.ID)}}
	}
	if text == "" {
		return nil
	}

	for _, lr := range r.labelRoutes {
		if r.labels.IsLabel(lr.label, text) {
			return &handlers.Route{Name: lr.name, Handler: lr.handler}
		}
	}

	if strings.HasPrefix(text, "/") {
		for _, cr := range r.commands {
			m := cr.pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if args, ok := cr.build(m); ok {
				return &handlers.Route{Name: cr.name, Handler: cr.handler, Args: args}
			}
		}
	}

	return &handlers.Route{Name: "unknown", Handler: r.unknown}
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	r.mu.RLock()
	middlewares := append([]handlers.Middleware(nil), r.middlewares...)
	r.mu.RUnlock()

	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}
