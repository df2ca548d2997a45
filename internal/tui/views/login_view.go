package views

import (
	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/rivo/tview"
)

// LoginView is the sign-in form.
type LoginView struct {
	*tview.Form
	theme      *ui.Theme
	email      *tview.InputField
	password   *tview.InputField
	onLogin    func(email, password string)
	onRegister func()
}

// NewLoginView creates the login page.
func NewLoginView(theme *ui.Theme) *LoginView {
	lv := &LoginView{
		Form:  tview.NewForm(),
		theme: theme,
	}
	lv.email = tview.NewInputField().SetLabel("Email").SetFieldWidth(40)
	lv.password = tview.NewInputField().SetLabel("Password").SetFieldWidth(40).SetMaskCharacter('*')

	lv.AddFormItem(lv.email)
	lv.AddFormItem(lv.password)
	lv.AddButton("Masuk", func() {
		if lv.onLogin != nil {
			lv.onLogin(lv.email.GetText(), lv.password.GetText())
		}
	})
	lv.AddButton("Daftar", func() {
		if lv.onRegister != nil {
			lv.onRegister()
		}
	})
	styleForm(lv.Form, theme, " Chat Room - Masuk ")
	return lv
}

// Name implements Component.
func (lv *LoginView) Name() string { return "Login" }

// Hints implements Component.
func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnLogin sets the submit callback.
func (lv *LoginView) SetOnLogin(fn func(email, password string)) {
	lv.onLogin = fn
}

// SetOnRegister sets the callback for the register link.
func (lv *LoginView) SetOnRegister(fn func()) {
	lv.onRegister = fn
}

// SetBusy relabels the submit button while a request runs.
func (lv *LoginView) SetBusy(busy bool) {
	label := "Masuk"
	if busy {
		label = "Memproses..."
	}
	lv.GetButton(0).SetLabel(label)
}

// Reset clears the password, keeping the email for the next attempt.
func (lv *LoginView) Reset() {
	lv.password.SetText("")
	lv.SetFocus(0)
}

func styleForm(f *tview.Form, theme *ui.Theme, title string) {
	f.SetBorder(true)
	f.SetBorderColor(theme.BorderColor)
	f.SetBackgroundColor(theme.BgColor)
	f.SetTitle(title)
	f.SetTitleColor(theme.TitleColor)
	f.SetFieldBackgroundColor(theme.BgColor)
	f.SetFieldTextColor(theme.FgColor)
	f.SetLabelColor(theme.MenuKeyColor)
	f.SetButtonBackgroundColor(theme.ButtonBgColor)
	f.SetButtonsAlign(tview.AlignCenter)
}
