package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGreeting(t *testing.T) {
	yes := []string{"hi", "  Hello ", "hiii", "heyyy", "good morning", "Good evening team", "how are you?", "whats up", "what's up doc", "salaam", "hi there", "start"}
	for _, v := range yes {
		assert.True(t, IsGreeting(v), "expected greeting %q", v)
	}
	no := []string{"", "history", "high balance", "12345-1234567-1", "show my balance", "hint"}
	for _, v := range no {
		assert.False(t, IsGreeting(v), "expected non-greeting %q", v)
	}
}

func TestExtractIdentityDocument(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{name: "bare", text: "12345-1234567-1", want: "12345-1234567-1", found: true},
		{name: "in sentence", text: "My id is 12345-1234567-1 thanks", want: "12345-1234567-1", found: true},
		{name: "first of two", text: "11111-2222222-3 or 44444-5555555-6", want: "11111-2222222-3", found: true},
		{name: "wrong grouping", text: "1234-1234567-1", found: false},
		{name: "no hyphens", text: "1234512345671", found: false},
		{name: "embedded in longer digits", text: "912345-1234567-12", found: false},
		{name: "empty", text: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractIdentityDocument(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsOTPFormat(t *testing.T) {
	for _, v := range []string{"1", "42", " 99 ", "12345"} {
		assert.True(t, IsOTPFormat(v), v)
	}
	for _, v := range []string{"", "123456", "12a", "-1", "1 2", "code 42"} {
		assert.False(t, IsOTPFormat(v), v)
	}
}

func TestIsExit(t *testing.T) {
	assert.True(t, IsExit("exit"))
	assert.True(t, IsExit("  EXIT \n"))
	assert.False(t, IsExit("exit now"))
	assert.False(t, IsExit("exiting"))
}

func TestClassifyConfirmation(t *testing.T) {
	tests := []struct {
		text string
		want Confirmation
	}{
		{text: "yes", want: ConfirmationPositive},
		{text: "Yes please", want: ConfirmationPositive},
		{text: "ok go ahead", want: ConfirmationPositive},
		{text: "Y", want: ConfirmationPositive},
		{text: "no", want: ConfirmationNegative},
		{text: "cancel it", want: ConfirmationNegative},
		{text: "I don't want this", want: ConfirmationNegative},
		{text: "I don’t", want: ConfirmationNegative},
		{text: "yes no", want: ConfirmationPositive},
		{text: "not right", want: ConfirmationPositive},
		{text: "hmm maybe", want: ConfirmationAmbiguous},
		// whole-word matching: keywords inside longer words do not fire
		{text: "I know", want: ConfirmationAmbiguous},
		{text: "eyes", want: ConfirmationAmbiguous},
		{text: "notebook", want: ConfirmationAmbiguous},
		{text: "", want: ConfirmationAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyConfirmation(tt.text))
		})
	}
}
