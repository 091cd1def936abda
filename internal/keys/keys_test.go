package keys

import "testing"

// TestKeyStringValues verifies that all key constants produce the expected
// string representations. This acts as a safety net if Bubble Tea ever changes
// its key string format.
func TestKeyStringValues(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Up", Up, "up"},
		{"Down", Down, "down"},
		{"Home", Home, "home"},
		{"End", End, "end"},
		{"PgUp", PgUp, "pgup"},
		{"PgDown", PgDown, "pgdown"},

		{"Enter", Enter, "enter"},
		{"ShiftEnter", ShiftEnter, "shift+enter"},
		{"AltEnter", AltEnter, "alt+enter"},
		{"Tab", Tab, "tab"},
		{"ShiftTab", ShiftTab, "shift+tab"},
		{"Escape", Escape, "esc"},

		{"CtrlC", CtrlC, "ctrl+c"},
		{"CtrlV", CtrlV, "ctrl+v"},
		{"CtrlS", CtrlS, "ctrl+s"},
		{"CtrlO", CtrlO, "ctrl+o"},
		{"CtrlT", CtrlT, "ctrl+t"},
		{"CtrlN", CtrlN, "ctrl+n"},
		{"CtrlG", CtrlG, "ctrl+g"},
		{"CtrlY", CtrlY, "ctrl+y"},
		{"CtrlR", CtrlR, "ctrl+r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("keys.%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}
