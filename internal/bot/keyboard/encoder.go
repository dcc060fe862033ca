package keyboard

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Proton-105/number-bot/internal/screen"
)

const (
	CallbackDataSeparator  = "|"
	CallbackDataLimitBytes = 64

	stashPrefix      = "#"
	defaultStashSize = 4096
)

// ErrUnknownCallback is returned for callback data no button of this process produced.
var ErrUnknownCallback = errors.New("unknown callback data")

var actionCodes = map[screen.Action]string{
	screen.ActionNone:                    "n",
	screen.ActionCancel:                  "x",
	screen.ActionBack:                    "b",
	screen.ActionRefresh:                 "r",
	screen.ActionChangeCountry:           "cc",
	screen.ActionChangeService:           "cs",
	screen.ActionMethodText:              "mt",
	screen.ActionMethodFile:              "mf",
	screen.ActionServiceForCountry:       "sa",
	screen.ActionServiceForNumbers:       "sn",
	screen.ActionServiceRemove:           "sr",
	screen.ActionServiceForCountryRemove: "sc",
	screen.ActionServiceForGet:           "sg",
	screen.ActionCountryForNumbers:       "cn",
	screen.ActionCountryRemove:           "cr",
	screen.ActionCountryForGet:           "cg",
}

var codeActions = func() map[string]screen.Action {
	out := make(map[string]screen.Action, len(actionCodes))
	for action, code := range actionCodes {
		out[code] = action
	}
	return out
}()

// Codec turns selections into callback data and back.
//
// Data has the form code|service|country with '\' and '|' escaped. Selections whose
// encoding exceeds the callback limit are kept in a bounded in-memory stash and sent
// as '#' plus a digest.
type Codec struct {
	mu    sync.Mutex
	stash map[string]screen.Selection
	order []string
	limit int
}

// NewCodec creates a codec remembering up to stashSize oversized selections.
func NewCodec(stashSize int) *Codec {
	if stashSize <= 0 {
		stashSize = defaultStashSize
	}
	return &Codec{stash: make(map[string]screen.Selection), limit: stashSize}
}

// Encode returns the callback data for sel.
func (c *Codec) Encode(sel screen.Selection) (string, error) {
	code, ok := actionCodes[sel.Action]
	if !ok {
		return "", fmt.Errorf("encode callback: unknown action %q", sel.Action)
	}

	parts := []string{code}
	switch {
	case sel.Country != "":
		parts = append(parts, escape(sel.Service), escape(sel.Country))
	case sel.Service != "":
		parts = append(parts, escape(sel.Service))
	}

	data := strings.Join(parts, CallbackDataSeparator)
	if len(data) <= CallbackDataLimitBytes {
		return data, nil
	}

	return c.remember(data, sel), nil
}

// Decode maps callback data back to the selection that produced it.
func (c *Codec) Decode(data string) (screen.Selection, error) {
	if data == "" {
		return screen.Selection{}, errors.New("callback data is empty")
	}

	if strings.HasPrefix(data, stashPrefix) {
		c.mu.Lock()
		sel, ok := c.stash[data]
		c.mu.Unlock()
		if !ok {
			return screen.Selection{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
		}
		return sel, nil
	}

	parts := split(data)
	action, ok := codeActions[parts[0]]
	if !ok || len(parts) > 3 {
		return screen.Selection{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
	}

	sel := screen.Selection{Action: action}
	if len(parts) > 1 {
		sel.Service = parts[1]
	}
	if len(parts) > 2 {
		sel.Country = parts[2]
	}
	return sel, nil
}

func (c *Codec) remember(data string, sel screen.Selection) string {
	sum := sha256.Sum256([]byte(data))
	key := stashPrefix + hex.EncodeToString(sum[:16])

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.stash[key]; !ok {
		c.stash[key] = sel
		c.order = append(c.order, key)
		for len(c.order) > c.limit {
			delete(c.stash, c.order[0])
			c.order = c.order[1:]
		}
	}
	return key
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, CallbackDataSeparator, `\`+CallbackDataSeparator)
}

// split cuts data on unescaped separators and unescapes each part.
func split(data string) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)

	for _, r := range data {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case string(r) == CallbackDataSeparator:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(parts, current.String())
}
