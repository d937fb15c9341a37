// Package stealth implements the Stealth Profile, Patch Registry, and
// Injector (C9/C10): a curated set of JavaScript patches that harden an
// automated Chromium session against bot-detection, selected by level
// and injected in dependency order into every new page.
package stealth

import "fmt"

// Level selects which patches a profile installs.
type Level int

const (
	// LevelMinimum installs only {webdriver_basic, chrome_runtime_basic,
	// user_agent_basic}.
	LevelMinimum Level = iota
	// LevelBalanced installs everything except patches named with an
	// "experimental_" prefix.
	LevelBalanced
	// LevelMaximum installs every registered patch.
	LevelMaximum
)

func (l Level) String() string {
	switch l {
	case LevelMinimum:
		return "minimum"
	case LevelBalanced:
		return "balanced"
	case LevelMaximum:
		return "maximum"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel parses "minimum"/"balanced"/"maximum".
func ParseLevel(s string) (Level, error) {
	switch s {
	case "minimum":
		return LevelMinimum, nil
	case "balanced":
		return LevelBalanced, nil
	case "maximum":
		return LevelMaximum, nil
	default:
		return 0, fmt.Errorf("stealth: unknown level %q", s)
	}
}

// Profile is the StealthProfile entity from the data model: validated
// at construction, immutable afterward.
type Profile struct {
	Level        Level
	UserAgent    string
	WindowWidth  int64
	WindowHeight int64
	Languages    []string

	// SeedSession is a per-session identifier used to derive deterministic
	// canvas noise (see patches.go); two sessions with different
	// seeds must render visibly different noise, one session must always
	// render the same noise.
	SeedSession string
}

// DefaultProfile returns a balanced profile with Chrome's stock desktop
// user agent and a common 1920x1080 viewport.
func DefaultProfile(seedSession string) Profile {
	return Profile{
		Level:        LevelBalanced,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		WindowWidth:  1920,
		WindowHeight: 1080,
		Languages:    []string{"en-US", "en"},
		SeedSession:  seedSession,
	}
}

// Validate checks the profile's invariants.
func (p Profile) Validate() error {
	if p.WindowWidth <= 0 || p.WindowHeight <= 0 {
		return fmt.Errorf("stealth: invalid window size %dx%d", p.WindowWidth, p.WindowHeight)
	}
	if p.UserAgent == "" {
		return fmt.Errorf("stealth: empty user agent")
	}
	if len(p.Languages) == 0 {
		return fmt.Errorf("stealth: no languages configured")
	}
	return nil
}
