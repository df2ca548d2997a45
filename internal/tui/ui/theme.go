package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TitleColor       tcell.Color
	MenuKeyColor     tcell.Color
	OwnNameColor     tcell.Color
	PeerNameColor    tcell.Color
	PendingColor     tcell.Color
	ButtonBgColor    tcell.Color
	OnlineColor      tcell.Color
	OfflineBgColor   tcell.Color
	OfflineFgColor   tcell.Color
	FlashInfoColor   tcell.Color
	FlashWarnColor   tcell.Color
	FlashErrColor    tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorWhiteSmoke,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TitleColor:       tcell.ColorDodgerBlue,
		MenuKeyColor:     tcell.ColorDodgerBlue,
		OwnNameColor:     tcell.ColorDodgerBlue,
		PeerNameColor:    tcell.ColorMediumSeaGreen,
		PendingColor:     tcell.ColorGray,
		ButtonBgColor:    tcell.ColorDodgerBlue,
		OnlineColor:      tcell.ColorGreen,
		OfflineBgColor:   tcell.ColorOrangeRed,
		OfflineFgColor:   tcell.ColorWhite,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashWarnColor:   tcell.ColorOrange,
		FlashErrColor:    tcell.ColorOrangeRed,
	}
}

// Tag returns a tview color tag name for c.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
