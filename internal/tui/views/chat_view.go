package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/rivo/tview"
)

const offlineBanner = "Mode Offline - Menampilkan pesan tersimpan"

// ChatView is the chat room: header, offline banner, message list and
// composer.
type ChatView struct {
	*tview.Flex
	theme    *ui.Theme
	header   *tview.TextView
	banner   *tview.TextView
	messages *tview.TextView
	composer *tview.InputField
	userName string
	email    string
	online   bool
	onSubmit func(line string)
}

// NewChatView creates the chat page.
func NewChatView(theme *ui.Theme) *ChatView {
	header := tview.NewTextView().SetDynamicColors(true)
	header.SetBackgroundColor(theme.BgColor)

	banner := tview.NewTextView().SetTextAlign(tview.AlignCenter)
	banner.SetBackgroundColor(theme.OfflineBgColor)
	banner.SetTextColor(theme.OfflineFgColor)
	banner.SetText(offlineBanner)

	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetPlaceholder("Ketik pesan...").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Kirim (Enter) · /image <path> · /qr ")
	composer.SetTitleColor(theme.TitleColor)

	cv := &ChatView{
		Flex:     tview.NewFlex().SetDirection(tview.FlexRow),
		theme:    theme,
		header:   header,
		banner:   banner,
		messages: messages,
		composer: composer,
		online:   true,
	}
	cv.layout()

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || cv.onSubmit == nil {
			return
		}
		line := composer.GetText()
		if strings.TrimSpace(line) == "" {
			return
		}
		cv.onSubmit(line)
		composer.SetText("")
	})

	return cv
}

func (cv *ChatView) layout() {
	cv.Clear()
	cv.AddItem(cv.header, 2, 0, false)
	if !cv.online {
		cv.AddItem(cv.banner, 1, 0, false)
	}
	cv.AddItem(cv.messages, 0, 1, false)
	cv.AddItem(cv.composer, 3, 0, true)
	cv.renderHeader()
}

// Name implements Component.
func (cv *ChatView) Name() string { return "Chat Room" }

// Hints implements Component.
func (cv *ChatView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Esc", Description: "Leave composer"},
		{Key: "L", Description: "Logout"},
		{Key: "?", Description: "Help"},
	}
}

// SetParticipant sets who is signed in. Ownership of messages is decided
// by email.
func (cv *ChatView) SetParticipant(name, email string) {
	cv.userName = name
	cv.email = email
	cv.renderHeader()
}

// SetOnline toggles the offline banner.
func (cv *ChatView) SetOnline(online bool) {
	if online == cv.online {
		return
	}
	cv.online = online
	cv.layout()
}

// SetOnSubmit sets the callback for a submitted composer line.
func (cv *ChatView) SetOnSubmit(fn func(line string)) {
	cv.onSubmit = fn
}

// Update replaces the rendered list.
func (cv *ChatView) Update(msgs []chat.Message) {
	cv.messages.Clear()
	_, _ = fmt.Fprint(cv.messages, FormatMessages(msgs, cv.email, cv.theme))
	cv.messages.ScrollToEnd()
}

// Composer returns the composer input field (for focus management).
func (cv *ChatView) Composer() *tview.InputField {
	return cv.composer
}

// Messages returns the message text view (for focus management).
func (cv *ChatView) Messages() *tview.TextView {
	return cv.messages
}

func (cv *ChatView) renderHeader() {
	cv.header.Clear()
	sub := fmt.Sprintf("[%s]%s[-]", ui.Tag(cv.theme.OnlineColor), displayText(cv.userName))
	if !cv.online {
		sub = fmt.Sprintf("[%s]Offline Mode[-]", ui.Tag(cv.theme.FlashWarnColor))
	}
	_, _ = fmt.Fprintf(cv.header, " [%s::b]Chat Room[-:-:-]\n %s", ui.Tag(cv.theme.TitleColor), sub)
}

// FormatMessages renders msgs oldest first. Messages sent by self are
// labelled "Kamu"; others carry the sender name. A message without a
// server time yet shows as pending.
func FormatMessages(msgs []chat.Message, self string, theme *ui.Theme) string {
	if len(msgs) == 0 {
		return fmt.Sprintf("\n [%s]Belum ada pesan. Mulai chat![-]", ui.Tag(theme.PendingColor))
	}
	var sb strings.Builder
	for _, m := range msgs {
		name, color := displayText(m.User), theme.PeerNameColor
		if m.IsMine(self) {
			name, color = "Kamu", theme.OwnNameColor
		}
		ts := "mengirim..."
		if m.CreatedAt != nil {
			ts = m.CreatedAt.Local().Format("15:04")
		}
		body := displayText(m.Text)
		if m.IsImage && m.ImageURL != "" {
			body = "[::u]gambar[::-] " + displayText(m.ImageURL)
		}
		fmt.Fprintf(&sb, "[%s::b]%s[-:-:-] [%s]%s[-]\n%s\n\n",
			ui.Tag(color), name, ui.Tag(theme.PendingColor), ts, body)
	}
	return sb.String()
}
