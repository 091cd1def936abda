// Package keys provides string constants for Bubble Tea v2 key press events.
//
// The constants are derived from tea.KeyPressMsg{...}.String(), so they always
// match the runtime values. Single-character keys like "j" or "?" are written
// inline where they are bound.
package keys

import tea "charm.land/bubbletea/v2"

// Navigation keys
var (
	Up     = tea.KeyPressMsg{Code: tea.KeyUp}.String()     // "up"
	Down   = tea.KeyPressMsg{Code: tea.KeyDown}.String()   // "down"
	Home   = tea.KeyPressMsg{Code: tea.KeyHome}.String()   // "home"
	End    = tea.KeyPressMsg{Code: tea.KeyEnd}.String()    // "end"
	PgUp   = tea.KeyPressMsg{Code: tea.KeyPgUp}.String()   // "pgup"
	PgDown = tea.KeyPressMsg{Code: tea.KeyPgDown}.String() // "pgdown"
)

// Action keys
var (
	Enter      = tea.KeyPressMsg{Code: tea.KeyEnter}.String()                      // "enter"
	ShiftEnter = (tea.KeyPressMsg{Code: tea.KeyEnter, Mod: tea.ModShift}).String() // "shift+enter"
	AltEnter   = (tea.KeyPressMsg{Code: tea.KeyEnter, Mod: tea.ModAlt}).String()   // "alt+enter"
	Tab        = tea.KeyPressMsg{Code: tea.KeyTab}.String()                        // "tab"
	ShiftTab   = (tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift}).String()   // "shift+tab"
	Escape     = tea.KeyPressMsg{Code: tea.KeyEscape}.String()                     // "esc"
)

// Ctrl combinations
var (
	CtrlC = (tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}).String() // "ctrl+c"
	CtrlV = (tea.KeyPressMsg{Code: 'v', Mod: tea.ModCtrl}).String() // "ctrl+v"
	CtrlS = (tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl}).String() // "ctrl+s"
	CtrlO = (tea.KeyPressMsg{Code: 'o', Mod: tea.ModCtrl}).String() // "ctrl+o"
	CtrlT = (tea.KeyPressMsg{Code: 't', Mod: tea.ModCtrl}).String() // "ctrl+t"
	CtrlN = (tea.KeyPressMsg{Code: 'n', Mod: tea.ModCtrl}).String() // "ctrl+n"
	CtrlG = (tea.KeyPressMsg{Code: 'g', Mod: tea.ModCtrl}).String() // "ctrl+g"
	CtrlY = (tea.KeyPressMsg{Code: 'y', Mod: tea.ModCtrl}).String() // "ctrl+y"
	CtrlR = (tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl}).String() // "ctrl+r"
)
