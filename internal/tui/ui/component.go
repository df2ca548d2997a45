package ui

// MenuHint describes a keyboard shortcut for display in the hint line.
type MenuHint struct {
	Key         string
	Description string
}

// Component is implemented by every page the TUI can show.
type Component interface {
	Name() string
	Hints() []MenuHint
}
