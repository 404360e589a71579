package models

// Screen is a navigable view of the app.
type Screen string

// Screens.
const (
	ScreenOnboarding Screen = "ONBOARDING"
	ScreenHome       Screen = "HOME"
	ScreenFriends    Screen = "FRIENDS"
	ScreenActivities Screen = "ACTIVITIES"
	ScreenProfile    Screen = "PROFILE"
	ScreenChat       Screen = "CHAT"
)

// Valid reports whether s names a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenOnboarding, ScreenHome, ScreenFriends, ScreenActivities, ScreenProfile, ScreenChat:
		return true
	}
	return false
}
