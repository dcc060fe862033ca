package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/screen"
)

// MenuSource supplies the reply keyboard labels for a role.
type MenuSource interface {
	MenuRows(admin bool) [][]string
	Label(key string) string
}

// Builder turns payloads into telebot markup.
type Builder struct {
	codec *Codec
	menus MenuSource
	log   *slog.Logger
}

// NewBuilder returns a Builder using codec for inline data and menus for reply keyboards.
func NewBuilder(codec *Codec, menus MenuSource, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{codec: codec, menus: menus, log: log}
}

// Codec exposes the selection codec so the transport can decode presses.
func (b *Builder) Codec() *Codec {
	return b.codec
}

// Markup returns the markup for p, or nil when p carries no buttons.
func (b *Builder) Markup(p screen.Payload) (*telebot.ReplyMarkup, error) {
	switch p.Keyboard {
	case screen.KeyboardAdminMenu:
		return MainMenu(b.menus.MenuRows(true), b.menus.Label("menu.placeholder")), nil
	case screen.KeyboardUserMenu:
		return MainMenu(b.menus.MenuRows(false), b.menus.Label("menu.placeholder")), nil
	}

	if len(p.Rows) == 0 {
		return nil, nil
	}

	markup, err := NewInlineKeyboard().AddOptions(p.Rows).Build(b.codec)
	if err != nil {
		b.log.Error("failed to build inline keyboard", "error", err)
		return nil, err
	}
	return markup, nil
}
