package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	"github.com/Proton-105/number-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/inventory"
	"github.com/Proton-105/number-bot/internal/middleware"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
	"github.com/Proton-105/number-bot/pkg/config"
)

const callbackStashSize = 4096

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	webhook    *telebot.Webhook
	log        *slog.Logger
	cfg        config.Config
	fsm        state.StateMachine
	updateMw   []telebot.MiddlewareFunc
	router     *Router
	dispatcher *Dispatcher
	keyboard   *keyboard.Builder
	errHandler *errors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
// updateMw run in order on every raw update before it reaches the dispatcher.
func New(
	cfg config.Config,
	log *slog.Logger,
	store inventory.Store,
	fsm state.StateMachine,
	screens *screen.Renderer,
	updateMw ...telebot.MiddlewareFunc,
) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token:     cfg.Bot.Token,
		ParseMode: telebot.ModeHTML,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	var webhook *telebot.Webhook
	if cfg.Bot.Mode == config.BotModeWebhook {
		webhook = &telebot.Webhook{
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
		settings.Poller = webhook
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.PollTimeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := newBot(cfg, log, tb, store, fsm, screens, updateMw)
	b.webhook = webhook
	return b, nil
}

func newBot(
	cfg config.Config,
	log *slog.Logger,
	tb *telebot.Bot,
	store inventory.Store,
	fsm state.StateMachine,
	screens *screen.Renderer,
	updateMw []telebot.MiddlewareFunc,
) *Bot {
	router := NewRouter(log)

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		fsm:        fsm,
		updateMw:   updateMw,
		router:     router,
		dispatcher: NewDispatcher(fsm, router, cfg.Admin.ID, log),
		keyboard:   keyboard.NewBuilder(keyboard.NewCodec(callbackStashSize), screens, log),
		errHandler: errors.NewHandler(log, cfg.Sentry.Enabled),
	}

	flows := handlers.NewFlows(handlers.FlowsConfig{
		Store:         store,
		FSM:           fsm,
		Screens:       screens,
		Files:         NewTelegramFetcher(tb, cfg.Bot.FileTimeout, cfg.Bot.MaxFileBytes, log),
		AdminUsername: cfg.Admin.Username,
		Log:           log,
	})

	b.setupRouter(flows, screens)

	if len(b.updateMw) > 0 {
		b.telebot.Use(b.updateMw...)
	}

	b.registerTelebotHandlers()

	return b
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// WebhookHandler returns the update receiver in webhook mode, or nil when polling.
// It must only serve requests after Start.
func (b *Bot) WebhookHandler() http.Handler {
	if b.webhook == nil {
		return nil
	}
	return b.webhook
}

func (b *Bot) setupRouter(flows *handlers.Flows, screens *screen.Renderer) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler, b.fsm))
	b.router.Use(ErrorHandlingMiddleware(b.log, b.errHandler, b.fsm))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)

	RegisterRoutes(b.router, flows, screens)
	b.log.Debug("routes registered", "count", b.router.Len())
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.onText)
	b.telebot.Handle(telebot.OnCallback, b.onCallback)
	b.telebot.Handle(telebot.OnDocument, b.onDocument)
}

func (b *Bot) onText(c telebot.Context) error {
	ev, ok := baseEvent(c)
	if !ok {
		return nil
	}
	ev.Kind = handlers.EventText
	ev.Text = normalizeCommand(c.Text(), b.telebot.Me)

	return b.dispatch(c, ev)
}

func (b *Bot) onDocument(c telebot.Context) error {
	ev, ok := baseEvent(c)
	if !ok || c.Message() == nil || c.Message().Document == nil {
		return nil
	}

	doc := c.Message().Document
	ev.Kind = handlers.EventFile
	ev.File = handlers.FileRef{
		ID:   doc.FileID,
		MIME: doc.MIME,
		Name: doc.FileName,
		Size: doc.FileSize,
	}

	return b.dispatch(c, ev)
}

func (b *Bot) onCallback(c telebot.Context) error {
	ev, ok := baseEvent(c)
	if !ok || c.Callback() == nil {
		return nil
	}

	sel, err := b.keyboard.Codec().Decode(c.Callback().Data)
	if err != nil {
		b.log.Debug("ignoring undecodable callback", slog.Int64("session_id", ev.SessionID), slog.Any("error", err))
		return c.Respond()
	}
	ev.Kind = handlers.EventSelection
	ev.Selection = sel

	return b.dispatch(c, ev)
}

func (b *Bot) dispatch(c telebot.Context, ev handlers.Event) error {
	reply := newResponder(c, b.keyboard, b.log)

	err := b.dispatcher.Dispatch(context.Background(), ev, reply)
	if err != nil {
		if msg, _ := b.errHandler.Handle(context.Background(), err); msg != "" {
			_ = reply.Send(context.Background(), screen.Payload{Text: msg})
		}
	}

	reply.settle()
	return nil
}

func baseEvent(c telebot.Context) (handlers.Event, bool) {
	if c == nil || c.Sender() == nil {
		return handlers.Event{}, false
	}

	sender := c.Sender()
	return handlers.Event{
		SessionID: sender.ID,
		CallerID:  sender.ID,
		FirstName: sender.FirstName,
	}, true
}

// normalizeCommand strips "@botname" and arguments from a command so "/start@bot x" routes as "/start".
func normalizeCommand(text string, me *telebot.User) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}

	cmd, _, _ := strings.Cut(text, " ")
	name, mention, found := strings.Cut(cmd, "@")
	if !found {
		return name
	}
	if me != nil && me.Username != "" && !strings.EqualFold(mention, me.Username) {
		return text
	}
	return name
}

// telegramResponder answers in the chat the update came from.
// Button presses edit the pressed message unless the payload asks for a new one.
type telegramResponder struct {
	c        telebot.Context
	kb       *keyboard.Builder
	log      *slog.Logger
	answered bool
}

func newResponder(c telebot.Context, kb *keyboard.Builder, log *slog.Logger) *telegramResponder {
	return &telegramResponder{c: c, kb: kb, log: log}
}

// Send shows p, spreading texts longer than a Telegram message over several messages.
func (r *telegramResponder) Send(_ context.Context, p screen.Payload) error {
	parts := screen.Split(p, screen.MaxTextRunes)
	if err := r.show(parts[0]); err != nil {
		return err
	}

	for _, part := range parts[1:] {
		opts, err := r.options(part)
		if err != nil {
			return err
		}
		if err := r.c.Send(part.Text, opts...); err != nil {
			return err
		}
	}
	return nil
}

func (r *telegramResponder) options(p screen.Payload) ([]interface{}, error) {
	markup, err := r.kb.Markup(p)
	if err != nil {
		return nil, err
	}

	opts := make([]interface{}, 0, 1)
	if markup != nil {
		opts = append(opts, markup)
	}
	return opts, nil
}

func (r *telegramResponder) show(p screen.Payload) error {
	opts, err := r.options(p)
	if err != nil {
		return err
	}

	cb := r.c.Callback()
	if cb == nil || cb.Message == nil {
		return r.c.Send(p.Text, opts...)
	}

	if p.NewMessage {
		if err := r.c.Delete(); err != nil {
			r.log.Debug("failed to delete pressed message", slog.Any("error", err))
		}
		return r.c.Send(p.Text, opts...)
	}

	err = r.c.Edit(p.Text, opts...)
	if stderrors.Is(err, telebot.ErrMessageNotModified) || stderrors.Is(err, telebot.ErrSameMessageContent) {
		return nil
	}
	return err
}

func (r *telegramResponder) Notify(_ context.Context, text string, alert bool) error {
	if r.c.Callback() == nil {
		return r.c.Send(text)
	}

	r.answered = true
	return r.c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: alert})
}

// settle acknowledges a button press nobody answered so the client stops its spinner.
func (r *telegramResponder) settle() {
	if r.answered || r.c.Callback() == nil {
		return
	}

	r.answered = true
	if err := r.c.Respond(); err != nil {
		r.log.Debug("failed to answer callback", slog.Any("error", err))
	}
}
