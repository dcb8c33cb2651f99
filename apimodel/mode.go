package apimodel

type Mode int64

const (
	INTERACTIVE_MODE Mode = iota
	SCREENSAVER_MODE
)

// Title is the first line shown on the character LCD.
func (m Mode) Title() string {
	switch m {
	case SCREENSAVER_MODE:
		return "*** SCREEN-SAVER ***"
	default:
		return "*** INTER-ACTIVE ***"
	}
}

func (m Mode) String() string {
	switch m {
	case SCREENSAVER_MODE:
		return "screensaver"
	default:
		return "interactive"
	}
}
