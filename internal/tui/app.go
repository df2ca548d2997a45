// Package tui is the terminal front end of the chat room. It holds no
// policy: every decision is the daemon's, the TUI renders its state.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/tui/keys"
	"github.com/matheus3301/chatroom/internal/tui/model"
	"github.com/matheus3301/chatroom/internal/tui/ui"
	"github.com/matheus3301/chatroom/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageSplash   = "splash"
	pageLogin    = "login"
	pageRegister = "register"
	pageChat     = "chat"
	pageHelp     = "help"
	pageQR       = "qr"
	modalLogout  = "logout"
)

// Client is the daemon connection the TUI runs on.
type Client interface {
	model.Daemon
	Watch(ctx context.Context) (*api.EventStream, error)
}

// App is the main TUI application shell.
type App struct {
	app        *tview.Application
	pages      *ui.Pages
	theme      *ui.Theme
	vm         *model.ViewModel
	client     Client
	registry   *keys.Registry
	statusBar  *views.StatusBar
	flashBar   *ui.FlashBar
	login      *views.LoginView
	register   *views.RegisterView
	chat       *views.ChatView
	qr         *views.QRView
	help       *views.HelpView
	confirm    *tview.Modal
	components map[string]ui.Component
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c Client, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     ui.NewPages(),
		theme:     theme,
		vm:        model.NewViewModel(c),
		client:    c,
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(theme),
		flashBar:  ui.NewFlashBar(theme),
		login:     views.NewLoginView(theme),
		register:  views.NewRegisterView(theme),
		chat:      views.NewChatView(theme),
		qr:        views.NewQRView(theme),
		help:      views.NewHelpView(theme),
		confirm:   tview.NewModal(),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.components = map[string]ui.Component{
		pageLogin:    a.login,
		pageRegister: a.register,
		pageChat:     a.chat,
		pageQR:       a.qr,
		pageHelp:     a.help,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Handler: func() { a.showHelp() },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Handler: func() { a.app.SetFocus(a.chat.Composer()) },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Rune: 'L', Key: tcell.KeyRune,
		Handler: func() { a.confirmLogout() },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Handler: func() { a.showQR() },
	})
}

func (a *App) setupCallbacks() {
	a.login.SetOnLogin(func(email, password string) {
		if a.vm.Busy() {
			return
		}
		a.login.SetBusy(true)
		go func() {
			err := a.vm.Login(a.ctx, email, password)
			a.app.QueueUpdateDraw(func() {
				a.login.SetBusy(false)
				a.afterNavigate(err)
			})
		}()
	})
	a.login.SetOnRegister(func() {
		a.register.Reset()
		a.pages.Navigate(pageRegister, false)
		a.app.SetFocus(a.register)
	})

	a.register.SetOnRegister(func(req api.RegisterRequest) {
		if a.vm.Busy() {
			return
		}
		a.register.SetBusy(true)
		go func() {
			err := a.vm.Register(a.ctx, req)
			a.app.QueueUpdateDraw(func() {
				a.register.SetBusy(false)
				if err == nil {
					a.vm.Flash.Info("Registrasi berhasil!")
				}
				a.afterNavigate(err)
			})
		}()
	})
	a.register.SetOnBack(func() { a.back() })

	a.chat.SetOnSubmit(a.submit)

	a.confirm.SetText("Yakin ingin keluar?").
		AddButtons([]string{"Batal", "Logout"}).
		SetDoneFunc(func(_ int, label string) {
			a.pages.HidePage(modalLogout)
			a.app.SetFocus(a.chat.Composer())
			if label == "Logout" {
				a.logout()
			}
		})
}

func (a *App) setupLayout() {
	splash := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("\n\n\nChat Room\n\nMemuat...")
	splash.SetBackgroundColor(a.theme.BgColor)

	a.pages.AddPage(pageSplash, splash, true, false)
	a.pages.AddPage(pageLogin, center(a.login, 60, 11), true, false)
	a.pages.AddPage(pageRegister, center(a.register, 60, 15), true, false)
	a.pages.AddPage(pageChat, a.chat, true, false)
	a.pages.AddPage(pageQR, a.qr, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.pages.AddPage(modalLogout, a.confirm, false, false)

	a.pages.SetOnChange(func(stack []string) {
		a.statusBar.SetHints(a.hints(stack[len(stack)-1]))
	})
	a.pages.Reset(pageSplash)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		current := a.pages.Current()
		if visible, _ := a.pages.GetFrontPage(); visible == modalLogout {
			return event
		}

		if event.Key() == tcell.KeyEscape {
			switch current {
			case pageHelp, pageQR, pageRegister:
				a.back()
				return nil
			case pageChat:
				a.app.SetFocus(a.chat.Messages())
				return nil
			}
		}

		// Text widgets and forms get every other key.
		switch a.app.GetFocus().(type) {
		case *tview.InputField, *tview.Button:
			return event
		}

		if a.registry.HandleEvent(current, event) {
			return nil
		}
		return event
	})
}

// center places p in the middle of the screen at the given size.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (a *App) hints(page string) []string {
	c, ok := a.components[page]
	if !ok {
		return nil
	}
	var out []string
	for _, h := range c.Hints() {
		out = append(out, fmt.Sprintf("<%s> %s", h.Key, h.Description))
	}
	return out
}

// submit handles a composer line: a command or a text message.
func (a *App) submit(line string) {
	cmd, text, ok := ParseCommand(line)
	if !ok {
		go func() {
			_ = a.vm.SendText(a.ctx, text)
			a.app.QueueUpdateDraw(a.refresh)
		}()
		return
	}

	switch cmd.Name {
	case "image", "img":
		if cmd.Args == "" {
			a.vm.Flash.Warn("Pakai: /image <path>")
			return
		}
		path, err := filepath.Abs(expandHome(cmd.Args))
		if err != nil {
			a.vm.Flash.Err(err.Error())
			return
		}
		go func() {
			_ = a.vm.SendImage(a.ctx, path)
			a.app.QueueUpdateDraw(a.refresh)
		}()
	case "qr":
		a.showQR()
	case "logout":
		a.confirmLogout()
	case "help":
		a.showHelp()
	default:
		a.vm.Flash.Warn("Perintah tidak dikenal: /" + cmd.Name)
	}
	a.flashBar.Update(a.vm.Flash.Current())
}

func (a *App) showQR() {
	a.qr.ShowURL(a.vm.LastImageURL())
	a.pages.Navigate(pageQR, false)
	a.focusCurrent()
}

func (a *App) showHelp() {
	a.pages.Navigate(pageHelp, false)
	a.focusCurrent()
}

func (a *App) confirmLogout() {
	a.pages.ShowPage(modalLogout)
	a.pages.SendToFront(modalLogout)
	a.app.SetFocus(a.confirm)
}

func (a *App) logout() {
	go func() {
		err := a.vm.Logout(a.ctx)
		a.app.QueueUpdateDraw(func() { a.afterNavigate(err) })
	}()
}

func (a *App) afterNavigate(err error) {
	if err == nil {
		a.route(a.vm.Destination())
	}
	a.refresh()
}

func (a *App) back() {
	a.pages.Pop()
	a.focusCurrent()
}

// route shows the page for dest.
func (a *App) route(dest api.Destination) {
	switch dest.Route {
	case "LOGIN":
		a.login.Reset()
		a.pages.Navigate(pageLogin, dest.Replace)
	case "REGISTER":
		a.register.Reset()
		a.pages.Navigate(pageRegister, dest.Replace)
	case "CHAT":
		a.chat.SetParticipant(dest.UserName, dest.UserEmail)
		a.chat.Update(a.vm.Messages())
		a.pages.Navigate(pageChat, dest.Replace)
	default:
		return
	}
	a.focusCurrent()
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageLogin:
		a.app.SetFocus(a.login)
	case pageRegister:
		a.app.SetFocus(a.register)
	case pageChat:
		a.app.SetFocus(a.chat.Composer())
	case pageQR:
		a.app.SetFocus(a.qr)
	case pageHelp:
		a.app.SetFocus(a.help)
	}
}

// refresh redraws everything derived from the view model. Must run on the
// UI goroutine.
func (a *App) refresh() {
	online := a.vm.Online()
	a.statusBar.SetState(a.vm.State(), online)
	a.chat.SetOnline(online)
	a.chat.Update(a.vm.Messages())
	a.flashBar.Update(a.vm.Flash.Current())
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		if err := a.vm.LoadStatus(a.ctx); err != nil {
			a.vm.Flash.Err(api.ErrorMessage(err))
		}
		a.app.QueueUpdateDraw(func() {
			a.route(a.vm.Destination())
			a.refresh()
		})
		go a.watchLoop()
		a.startTicker()
	}()

	return a.app.Run()
}

// watchLoop follows the daemon's event stream, reconnecting after errors.
func (a *App) watchLoop() {
	for a.ctx.Err() == nil {
		if err := a.follow(); err != nil && a.ctx.Err() == nil {
			a.vm.Flash.Warn("Daemon tidak terhubung: " + api.ErrorMessage(err))
		}
		select {
		case <-time.After(2 * time.Second):
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) follow() error {
	stream, err := a.client.Watch(a.ctx)
	if err != nil {
		return err
	}
	for {
		evt, err := stream.Recv()
		if err != nil {
			return err
		}
		routed := a.vm.Apply(evt)
		a.app.QueueUpdateDraw(func() {
			if routed {
				a.route(a.vm.Destination())
			}
			a.refresh()
		})
	}
}

// startTicker keeps the clock and flash expiry current.
func (a *App) startTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetState(a.vm.State(), a.vm.Online())
				a.flashBar.Update(a.vm.Flash.Current())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
