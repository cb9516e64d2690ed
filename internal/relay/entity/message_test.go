package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestCheckMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want error
	}{
		{name: "ok", msg: "Hi, I loved your portfolio. Let's talk!", want: nil},
		{name: "multiline ok", msg: "Hello there,\r\nlet's grab coffee.", want: nil},
		{name: "exactly 140", msg: strings.Repeat("ab ", 46) + "ab", want: nil},
		{name: "too long", msg: strings.Repeat("ab ", 47), want: ViolationMessageTooLong},
		{name: "non ascii", msg: "Café meeting tomorrow?", want: ViolationMessageNonASCII},
		{name: "tab", msg: "Hello\tthere friend", want: ViolationMessageNonASCII},
		{name: "too short after trim", msg: "   hi there   ", want: ViolationMessageTooShort},
		{name: "spam keyword", msg: "You are a WINNER, call me back", want: ViolationInappropriate},
		{name: "spam phrase", msg: "please click here for details", want: ViolationInappropriate},
		{name: "five repeated letters", msg: "Hellooooo how are you", want: ViolationRepeatedChars},
		{name: "four repeated letters", msg: "Hellooo how are you", want: nil},
		{name: "repeated digits allowed", msg: "call 5555555 tomorrow", want: nil},
		{name: "mixed case run allowed", msg: "what aAaAa mess here", want: nil},
		{name: "uppercase", msg: "PLEASE CALL ME BACK SOON", want: ViolationUppercase},
		{name: "uppercase just over ten chars", msg: "HELLO WORLD", want: ViolationUppercase},
		{name: "uppercase ten chars", msg: "ABCDEFGhij", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMessage(tt.msg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckInteraction(t *testing.T) {
	tests := []struct {
		name string
		in   *Interaction
		want error
	}{
		{name: "not reported", in: nil},
		{name: "empty block", in: &Interaction{}},
		{
			name: "too fast",
			in:   &Interaction{TimeSpent: lo.ToPtr(2999 * time.Millisecond), MouseActivity: lo.ToPtr(5)},
			want: ViolationTooFast,
		},
		{
			name: "no activity",
			in:   &Interaction{TimeSpent: lo.ToPtr(5 * time.Second), MouseActivity: lo.ToPtr(0), KeyboardActivity: lo.ToPtr(0)},
			want: ViolationNoInteraction,
		},
		{
			name: "keyboard only",
			in:   &Interaction{TimeSpent: lo.ToPtr(3 * time.Second), MouseActivity: lo.ToPtr(0), KeyboardActivity: lo.ToPtr(1)},
		},
		{name: "time missing", in: &Interaction{MouseActivity: lo.ToPtr(2), KeyboardActivity: lo.ToPtr(1)}},
		{name: "keyboard missing", in: &Interaction{TimeSpent: lo.ToPtr(5 * time.Second), MouseActivity: lo.ToPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInteraction(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckHoneypotAndName(t *testing.T) {
	assert.ErrorIs(t, CheckHoneypot("http://spam.example"), ViolationSpam)
	assert.NoError(t, CheckHoneypot(""))

	assert.NoError(t, CheckSenderName(" Anne-Marie O'Brien "))
	assert.ErrorIs(t, CheckSenderName("A"), ViolationName)
	assert.ErrorIs(t, CheckSenderName("Robert'); DROP TABLE"), ViolationName)
}

func TestFormatBodies(t *testing.T) {
	assert.Equal(t,
		"New message from Jo ( 2065551234 ) via your portfolio:\n\n\"Hello there friend\"",
		FormatRelayBody("", "Jo", "2065551234", "Hello there friend"),
	)
	assert.Equal(t,
		"New message from Jo ( 2065551234 ) via gorelay:\n\n\"hi\"",
		FormatRelayBody("gorelay", "Jo", "2065551234", "hi"),
	)
	assert.Equal(t,
		"992876 is your verification code. This code is valid for 1m0s.",
		FormatCodeBody("992876", time.Minute),
	)
	assert.Equal(t,
		"123456 is your verification code. This code is valid for 1m30s.",
		FormatCodeBody("123456", 90*time.Second),
	)
}
