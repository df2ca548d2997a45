package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays profile, session state, connectivity and key hints.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
	state   string
	online  bool
	hints   []string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetState updates the session state and connectivity.
func (sb *StatusBar) SetState(state string, online bool) {
	sb.state = state
	sb.online = online
	sb.render()
}

// SetHints updates the key hints of the current page.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	conn := fmt.Sprintf("[%s]online[-]", ui.Tag(sb.theme.OnlineColor))
	if !sb.online {
		conn = fmt.Sprintf("[%s]offline[-]", ui.Tag(sb.theme.FlashWarnColor))
	}
	state := sb.state
	if state == "" {
		state = "..."
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s | %s", sb.profile, state, conn, time.Now().Format("15:04"))
	if len(sb.hints) > 0 {
		line += " | [::d]" + strings.Join(sb.hints, "  ") + "[-:-:-]"
	}
	_, _ = fmt.Fprint(sb, line)
}
