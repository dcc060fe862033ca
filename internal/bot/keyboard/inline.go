package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/screen"
)

// InlineButton is a button definition collected by the builder.
type InlineButton struct {
	Text      string
	URL       string
	Selection screen.Selection
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions before rendering telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a new row made of custom InlineButton definitions.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// AddOptions appends the rows of a payload.
func (b *InlineKeyboardBuilder) AddOptions(rows [][]screen.Option) *InlineKeyboardBuilder {
	for _, options := range rows {
		buttons := make([]InlineButton, 0, len(options))
		for _, opt := range options {
			buttons = append(buttons, InlineButton{Text: opt.Label, URL: opt.URL, Selection: opt.Selection})
		}
		b.AddRow(buttons...)
	}
	return b
}

// Build renders inline markup, encoding selections with codec. URL buttons carry no data.
func (b *InlineKeyboardBuilder) Build(codec *Codec) (*telebot.ReplyMarkup, error) {
	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			if btn.URL != "" {
				inlineKeyboard[i][j] = telebot.InlineButton{Text: btn.Text, URL: btn.URL}
				continue
			}

			data, err := codec.Encode(btn.Selection)
			if err != nil {
				return nil, fmt.Errorf("button %q: %w", btn.Text, err)
			}
			inlineKeyboard[i][j] = telebot.InlineButton{Text: btn.Text, Data: data}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}
