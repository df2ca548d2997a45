package views

import (
	"fmt"

	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)
	key := func(k string) string { return fmt.Sprintf("[%s]%s[-:-:-]", kc, k) }

	_, _ = fmt.Fprintf(hv, `
  [::b]Chat Room[-:-:-]

  %s      Focus composer          %s    Leave composer
  %s      Logout (asks first)     %s      This help
  %s Quit

  [::b]Composer commands[-:-:-]

  %s    Upload and send an image
  %s               Show the newest image as a QR code
  %s           Logout
  %s              Send a line starting with "/"

  Sending needs a connection. Offline, the last synced messages stay
  on screen and new messages are refused.
`,
		key("i"), key("Esc"),
		key("L"), key("?"),
		key("Ctrl-C"),
		key("/image <path>"),
		key("/qr"),
		key("/logout"),
		key("//text"),
	)
}
