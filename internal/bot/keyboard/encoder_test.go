package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/number-bot/internal/bot/keyboard"
	"github.com/Proton-105/number-bot/internal/screen"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := keyboard.NewCodec(0)

	tests := []struct {
		name string
		sel  screen.Selection
		want string
	}{
		{name: "bare action", sel: screen.Selection{Action: screen.ActionBack}, want: "b"},
		{name: "service", sel: screen.Selection{Action: screen.ActionServiceForGet, Service: "WhatsApp"}, want: "sg|WhatsApp"},
		{name: "service and country", sel: screen.Selection{Action: screen.ActionCountryForGet, Service: "WhatsApp", Country: "US"}, want: "cg|WhatsApp|US"},
		{name: "separator in name", sel: screen.Selection{Action: screen.ActionCountryRemove, Service: "a|b", Country: `c\d`}, want: `cr|a\|b|c\\d`},
		{name: "empty service with country", sel: screen.Selection{Action: screen.ActionCountryForNumbers, Country: "US"}, want: "cn||US"},
		{name: "unicode", sel: screen.Selection{Action: screen.ActionServiceRemove, Service: "ইমো"}, want: "sr|ইমো"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.Encode(tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
			assert.LessOrEqual(t, len(data), keyboard.CallbackDataLimitBytes)

			got, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.sel, got)
		})
	}
}

func TestCodec_EveryActionHasACode(t *testing.T) {
	codec := keyboard.NewCodec(0)
	for _, action := range screen.Actions() {
		data, err := codec.Encode(screen.Selection{Action: action})
		require.NoError(t, err, "action %s", action)

		got, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, action, got.Action)
	}
}

func TestCodec_OversizedSelectionsAreStashed(t *testing.T) {
	codec := keyboard.NewCodec(2)
	long := screen.Selection{
		Action:  screen.ActionCountryForGet,
		Service: strings.Repeat("s", 40),
		Country: strings.Repeat("c", 40),
	}

	data, err := codec.Encode(long)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(data, "#"))
	assert.LessOrEqual(t, len(data), keyboard.CallbackDataLimitBytes)

	again, err := codec.Encode(long)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	got, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, long, got)

	for i := 0; i < 2; i++ {
		_, err := codec.Encode(screen.Selection{Action: screen.ActionServiceForGet, Service: strings.Repeat("x", 70+i)})
		require.NoError(t, err)
	}

	_, err = codec.Decode(data)
	assert.ErrorIs(t, err, keyboard.ErrUnknownCallback)
}

func TestCodec_DecodeRejectsForeignData(t *testing.T) {
	codec := keyboard.NewCodec(0)

	for _, input := range []string{"", "buy", "zz|a", "sg|a|b|c", "#deadbeef"} {
		_, err := codec.Decode(input)
		assert.Error(t, err, "input %q", input)
	}

	_, err := codec.Encode(screen.Selection{Action: "teleport"})
	assert.Error(t, err)
}
