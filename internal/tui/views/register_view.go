package views

import (
	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/rivo/tview"
)

// RegisterView is the account creation form.
type RegisterView struct {
	*tview.Form
	theme      *ui.Theme
	fields     [4]*tview.InputField
	onRegister func(req api.RegisterRequest)
	onBack     func()
}

// NewRegisterView creates the register page.
func NewRegisterView(theme *ui.Theme) *RegisterView {
	rv := &RegisterView{
		Form:  tview.NewForm(),
		theme: theme,
	}
	labels := [4]string{"Nama Lengkap", "Email", "Password", "Konfirmasi"}
	for i, label := range labels {
		f := tview.NewInputField().SetLabel(label).SetFieldWidth(40)
		if i >= 2 {
			f.SetMaskCharacter('*')
		}
		rv.fields[i] = f
		rv.AddFormItem(f)
	}
	rv.fields[2].SetPlaceholder("min. 6 karakter")

	rv.AddButton("Daftar", func() {
		if rv.onRegister != nil {
			rv.onRegister(rv.Request())
		}
	})
	rv.AddButton("Sudah punya akun? Masuk", func() {
		if rv.onBack != nil {
			rv.onBack()
		}
	})
	styleForm(rv.Form, theme, " Daftar Akun ")
	return rv
}

// Name implements Component.
func (rv *RegisterView) Name() string { return "Register" }

// Hints implements Component.
func (rv *RegisterView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Esc", Description: "Back"},
	}
}

// Request returns the form contents as typed.
func (rv *RegisterView) Request() api.RegisterRequest {
	return api.RegisterRequest{
		DisplayName: rv.fields[0].GetText(),
		Email:       rv.fields[1].GetText(),
		Password:    rv.fields[2].GetText(),
		Confirm:     rv.fields[3].GetText(),
	}
}

// SetOnRegister sets the submit callback.
func (rv *RegisterView) SetOnRegister(fn func(req api.RegisterRequest)) {
	rv.onRegister = fn
}

// SetOnBack sets the callback for the login link.
func (rv *RegisterView) SetOnBack(fn func()) {
	rv.onBack = fn
}

// SetBusy relabels the submit button while a request runs.
func (rv *RegisterView) SetBusy(busy bool) {
	label := "Daftar"
	if busy {
		label = "Memproses..."
	}
	rv.GetButton(0).SetLabel(label)
}

// Reset clears every field.
func (rv *RegisterView) Reset() {
	for _, f := range rv.fields {
		f.SetText("")
	}
	rv.SetFocus(0)
}
