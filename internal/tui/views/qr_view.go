package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/rivo/tview"
)

// QRView shows an image URL as a QR code so it can be opened on a phone.
type QRView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewQRView creates a new QR view.
func NewQRView(theme *ui.Theme) *QRView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Gambar ")
	tv.SetTitleColor(theme.TitleColor)

	return &QRView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (qv *QRView) Name() string { return "Image" }

// Hints implements Component.
func (qv *QRView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// ShowURL renders url as a QR code with the URL below it.
func (qv *QRView) ShowURL(url string) {
	qv.Clear()
	if url == "" {
		_, _ = fmt.Fprint(qv, "\n\nBelum ada gambar.")
		return
	}
	_, _ = fmt.Fprintf(qv, "\n  Scan untuk membuka gambar:\n\n%s\n  [::d]%s", renderQR(url), tview.Escape(url))
}

// renderQR draws content with Unicode half blocks, two bitmap rows per
// terminal line.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		sb.WriteString("  ")
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bot := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
