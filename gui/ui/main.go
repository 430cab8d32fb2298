package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Options configures the simulator window
type Options struct {
	Device   string
	BaudRate int
	APIURL   string
	Logger   *slog.Logger
}

// MainUI represents the main user interface
type MainUI struct {
	window    fyne.Window
	keypad    *KeypadTab
	dashboard *DashboardTab
	status    *widget.Label
}

// NewMainUI creates a new main UI
func NewMainUI(window fyne.Window, opts Options) *MainUI {
	ui := &MainUI{
		window: window,
		status: widget.NewLabel("Status: Disconnected"),
	}

	// Create tabs
	ui.keypad = NewKeypadTab(window, opts, ui.setStatus)
	ui.dashboard = NewDashboardTab(opts.APIURL)

	return ui
}

// Build constructs the UI layout
func (m *MainUI) Build() *fyne.Container {
	// Create tab container
	tabs := container.NewAppTabs(
		container.NewTabItem("Keyboard", m.keypad.Build()),
		container.NewTabItem("Driver Dashboard", m.dashboard.Build()),
	)

	return container.NewBorder(
		m.buildHeader(),
		m.buildFooter(),
		nil,
		nil,
		tabs,
	)
}

// Close releases the serial port and stops polling
func (m *MainUI) Close() {
	m.keypad.Disconnect()
	m.dashboard.Stop()
}

func (m *MainUI) setStatus(text string) {
	m.status.SetText("Status: " + text)
}

// buildHeader creates the header section
func (m *MainUI) buildHeader() *fyne.Container {
	title := widget.NewLabelWithStyle("Braille Keyboard Simulator",
		fyne.TextAlignCenter,
		fyne.TextStyle{Bold: true})

	return container.NewVBox(
		title,
		widget.NewSeparator(),
	)
}

// buildFooter creates the footer section
func (m *MainUI) buildFooter() *fyne.Container {
	return container.NewVBox(
		widget.NewSeparator(),
		m.status,
	)
}
