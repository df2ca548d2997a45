package tui

import "strings"

// Command is a composer line starting with '/'.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits a composer line into a command. ok is false for plain
// text, including a line that is just "/" or starts with "//" (sent as text
// without the first slash).
func ParseCommand(input string) (cmd Command, text string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") || trimmed == "/" {
		return Command{}, input, false
	}
	if strings.HasPrefix(trimmed, "//") {
		return Command{}, trimmed[1:], false
	}
	parts := strings.SplitN(trimmed[1:], " ", 2)
	cmd = Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd, "", true
}
