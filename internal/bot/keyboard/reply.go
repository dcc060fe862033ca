package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// MainMenu builds the persistent reply keyboard from rows of labels.
func MainMenu(rows [][]string, placeholder string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
		Placeholder:     placeholder,
	}

	replyRows := make([]telebot.Row, 0, len(rows))
	for _, labels := range rows {
		buttons := make([]telebot.Btn, 0, len(labels))
		for _, label := range labels {
			buttons = append(buttons, markup.Text(label))
		}
		replyRows = append(replyRows, markup.Row(buttons...))
	}

	markup.Reply(replyRows...)
	return markup
}
