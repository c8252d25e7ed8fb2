package models

// ThemeName identifies a UI color theme.
type ThemeName string

const (
	ThemeDark   ThemeName = "dark"
	ThemeLight  ThemeName = "light"
	ThemeOcean  ThemeName = "ocean"
	ThemeForest ThemeName = "forest"
	ThemeSunset ThemeName = "sunset"
)

// DefaultTheme is used when nothing valid is stored.
const DefaultTheme = ThemeDark

// Themes lists the supported themes in display order.
var Themes = []ThemeName{ThemeDark, ThemeLight, ThemeOcean, ThemeForest, ThemeSunset}

// ValidTheme reports whether name is a supported theme.
func ValidTheme(name string) bool {
	for _, t := range Themes {
		if string(t) == name {
			return true
		}
	}
	return false
}
