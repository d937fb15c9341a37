// Package kb holds the {keyCode, key, code} table the Input Synthesizer
// uses for non-printable keys, hand-authored in the same shape chromedp's
// kb generator produces from Chromium's own keycode table.
package kb

// Entry is one row of the special-key table: the legacy Windows virtual
// key code, the DOM "key" value, the DOM "code" value, and the text (if
// any) the key produces.
type Entry struct {
	KeyCode int64
	Key     string
	Code    string
	Text    string
}

// Keys maps a caller-facing key name to its CDP dispatch parameters.
var Keys = map[string]Entry{
	"Enter":      {KeyCode: 13, Key: "Enter", Code: "Enter", Text: "\r"},
	"Tab":        {KeyCode: 9, Key: "Tab", Code: "Tab"},
	"Escape":     {KeyCode: 27, Key: "Escape", Code: "Escape"},
	"Backspace":  {KeyCode: 8, Key: "Backspace", Code: "Backspace"},
	"Delete":     {KeyCode: 46, Key: "Delete", Code: "Delete"},
	"ArrowUp":    {KeyCode: 38, Key: "ArrowUp", Code: "ArrowUp"},
	"ArrowDown":  {KeyCode: 40, Key: "ArrowDown", Code: "ArrowDown"},
	"ArrowLeft":  {KeyCode: 37, Key: "ArrowLeft", Code: "ArrowLeft"},
	"ArrowRight": {KeyCode: 39, Key: "ArrowRight", Code: "ArrowRight"},
	"Home":       {KeyCode: 36, Key: "Home", Code: "Home"},
	"End":        {KeyCode: 35, Key: "End", Code: "End"},
	"PageUp":     {KeyCode: 33, Key: "PageUp", Code: "PageUp"},
	"PageDown":   {KeyCode: 34, Key: "PageDown", Code: "PageDown"},
	"Space":      {KeyCode: 32, Key: " ", Code: "Space", Text: " "},
	"F1":         {KeyCode: 112, Key: "F1", Code: "F1"},
	"F2":         {KeyCode: 113, Key: "F2", Code: "F2"},
	"F3":         {KeyCode: 114, Key: "F3", Code: "F3"},
	"F4":         {KeyCode: 115, Key: "F4", Code: "F4"},
	"F5":         {KeyCode: 116, Key: "F5", Code: "F5"},
	"Control":    {KeyCode: 17, Key: "Control", Code: "ControlLeft"},
	"Shift":      {KeyCode: 16, Key: "Shift", Code: "ShiftLeft"},
	"Alt":        {KeyCode: 18, Key: "Alt", Code: "AltLeft"},
	"Meta":       {KeyCode: 91, Key: "Meta", Code: "MetaLeft"},
}

// modifiers maps a modifier key's caller-facing name to the CDP
// modifier bitmap value (Alt=1, Ctrl=2, Meta=4, Shift=8).
var modifiers = map[string]int64{
	"Alt":     1,
	"Control": 2,
	"Meta":    4,
	"Shift":   8,
}

// ModifierFor reports the bitmap value for a modifier key name, if any.
func ModifierFor(name string) (int64, bool) {
	v, ok := modifiers[name]
	return v, ok
}
