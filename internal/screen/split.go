package screen

import (
	"strings"
	"unicode/utf8"
)

// MaxTextRunes is the longest message text Telegram accepts.
const MaxTextRunes = 4096

// Split breaks p into payloads whose texts fit in limit runes.
// Cuts fall on blank lines first, then on line ends, then anywhere.
// Only the last part carries the buttons and every part after the first is a new message.
func Split(p Payload, limit int) []Payload {
	if limit <= 0 || utf8.RuneCountInString(p.Text) <= limit {
		return []Payload{p}
	}

	chunks := splitText(p.Text, limit)
	if len(chunks) == 0 {
		return []Payload{p}
	}

	parts := make([]Payload, len(chunks))
	for i, chunk := range chunks {
		parts[i] = Payload{Text: chunk, Keyboard: KeyboardInline, NewMessage: i > 0}
	}
	parts[0].NewMessage = p.NewMessage

	last := &parts[len(parts)-1]
	last.Rows = p.Rows
	last.Keyboard = p.Keyboard
	return parts
}

func splitText(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		size   int
	)

	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			chunks = append(chunks, cur.String())
		}
		cur.Reset()
		size = 0
	}

	for _, piece := range pieces(text, limit) {
		n := utf8.RuneCountInString(piece)
		if size+n > limit {
			flush()
		}
		cur.WriteString(piece)
		size += n
	}
	flush()

	return chunks
}

// pieces cuts text into segments of at most limit runes, each ending at a
// paragraph break or a line end where one is close enough.
func pieces(text string, limit int) []string {
	var out []string

	for _, para := range strings.SplitAfter(text, "\n\n") {
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= limit {
			out = append(out, para)
			continue
		}

		for _, line := range strings.SplitAfter(para, "\n") {
			runes := []rune(line)
			for len(runes) > limit {
				out = append(out, string(runes[:limit]))
				runes = runes[limit:]
			}
			if len(runes) > 0 {
				out = append(out, string(runes))
			}
		}
	}

	return out
}
