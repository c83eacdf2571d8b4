package tui

// Mode is the input mode of the main view.
type Mode int

const (
	// ModeNormal routes keys to navigation and commands.
	ModeNormal Mode = iota
	// ModeFilter routes keys to the filter input.
	ModeFilter
	// ModeConfirm waits for a yes/no answer before a bulk deletion.
	ModeConfirm
)

// String returns the label shown in the status bar.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeFilter:
		return "FILTER"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}
