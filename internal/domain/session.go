package domain

import "strings"

// ============================================================
// Session & preferences (explicit values, never ambient state)
// ============================================================

// Session carries the credentials the client obtained at login.
// The BFA never issues or refreshes them; it forwards them upstream.
type Session struct {
	AccessToken string
	CSRFToken   string
}

// Authenticated reports whether a bearer token is present.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Theme is the user's colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Preferences are user-level presentation settings passed alongside a Session.
type Preferences struct {
	Theme Theme `json:"theme"`
}

// ResolveTheme returns the stored theme if valid, otherwise the system preference.
func ResolveTheme(stored string, prefersDark bool) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(stored))) {
	case ThemeDark:
		return ThemeDark
	case ThemeLight:
		return ThemeLight
	}
	if prefersDark {
		return ThemeDark
	}
	return ThemeLight
}
