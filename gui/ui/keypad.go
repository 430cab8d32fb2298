package ui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"braillekbd/braille"
	"braillekbd/device"
	"braillekbd/protocol"
	"braillekbd/serial"
)

var (
	ledOn  = color.NRGBA{R: 0xff, G: 0xb0, B: 0x00, A: 0xff}
	ledOff = color.NRGBA{R: 0x50, G: 0x50, B: 0x50, A: 0xff}
)

// dotOrder lays six dots out as they sit on the cell: 1 4 / 2 5 / 3 6
var dotOrder = []int{1, 4, 2, 5, 3, 6}

// KeypadTab plays the keyboard: dot keys and chords go out as protocol
// lines, LED and vibration commands from the driver are shown
type KeypadTab struct {
	window   fyne.Window
	opts     Options
	onStatus func(string)

	deviceEntry *widget.SelectEntry
	baudEntry   *widget.Entry
	connectBtn  *widget.Button
	dotChecks   [braille.DotCount]*widget.Check
	leds        [braille.DotCount]*canvas.Circle
	vibrate     *widget.Label
	log         *widget.Entry
	logLines    []string

	kb *device.Keyboard
}

// NewKeypadTab creates a new keypad tab
func NewKeypadTab(window fyne.Window, opts Options, onStatus func(string)) *KeypadTab {
	return &KeypadTab{
		window:   window,
		opts:     opts,
		onStatus: onStatus,
	}
}

// Build constructs the keypad UI
func (k *KeypadTab) Build() *fyne.Container {
	// Connection
	k.deviceEntry = widget.NewSelectEntry(nil)
	k.deviceEntry.SetText(k.opts.Device)
	k.deviceEntry.SetPlaceHolder("/dev/ttyUSB0")
	k.refreshPorts()

	k.baudEntry = widget.NewEntry()
	k.baudEntry.SetText(strconv.Itoa(k.opts.BaudRate))

	k.connectBtn = widget.NewButton("Connect", k.toggleConnection)
	k.connectBtn.Importance = widget.HighImportance

	connection := widget.NewCard("Serial Link", "", container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Device", k.deviceEntry),
			widget.NewFormItem("Baud", k.baudEntry),
		),
		container.NewHBox(k.connectBtn, widget.NewButton("Rescan Ports", k.refreshPorts)),
	))

	// Dot keys
	dotGrid := container.NewGridWithColumns(2)
	for _, dot := range dotOrder {
		check := widget.NewCheck(fmt.Sprintf("Dot %d", dot), nil)
		k.dotChecks[dot-1] = check
		dotGrid.Add(check)
	}
	sendBtn := widget.NewButton("Send Cell", k.sendCell)
	sendBtn.Importance = widget.HighImportance
	keys := widget.NewCard("Dot Keys", "", container.NewVBox(dotGrid, sendBtn))

	// Chords
	chordGrid := container.NewGridWithColumns(3)
	for _, e := range braille.ControlEvents() {
		e := e
		chordGrid.Add(widget.NewButton(e.String(), func() {
			k.send(e.String(), func(kb *device.Keyboard) error {
				return kb.SendControl(e)
			})
		}))
	}
	chords := widget.NewCard("Control Chords", "", chordGrid)

	// Feedback from the driver
	ledGrid := container.NewGridWithColumns(2)
	for _, dot := range dotOrder {
		circle := canvas.NewCircle(ledOff)
		k.leds[dot-1] = circle
		ledGrid.Add(container.NewBorder(nil, nil,
			container.NewGridWrap(fyne.NewSize(24, 24), circle),
			nil,
			widget.NewLabel(fmt.Sprintf("LED %d", dot))))
	}
	k.vibrate = widget.NewLabel("Vibration: idle")
	feedback := widget.NewCard("Driver Feedback", "", container.NewVBox(ledGrid, k.vibrate))

	// Traffic log
	k.log = widget.NewMultiLineEntry()
	k.log.Wrapping = fyne.TextWrapWord
	k.log.Disable()

	left := container.NewVBox(connection, keys, feedback)
	right := container.NewBorder(chords, nil, nil, nil,
		widget.NewCard("Traffic", "", container.NewScroll(k.log)))

	return container.NewBorder(nil, nil, left, nil, right)
}

func (k *KeypadTab) refreshPorts() {
	ports, err := serial.ListPorts()
	if err != nil {
		k.appendLog("port scan failed: " + err.Error())
		return
	}
	k.deviceEntry.SetOptions(ports)
}

func (k *KeypadTab) toggleConnection() {
	if k.kb != nil {
		k.Disconnect()
		return
	}

	baud, err := strconv.Atoi(strings.TrimSpace(k.baudEntry.Text))
	if err != nil {
		dialog.ShowError(fmt.Errorf("invalid baud rate: %s", k.baudEntry.Text), k.window)
		return
	}

	cfg := serial.PortConfig{
		Device:   strings.TrimSpace(k.deviceEntry.Text),
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	}
	port, err := serial.Open(cfg)
	if err != nil {
		dialog.ShowError(err, k.window)
		return
	}

	kb := device.NewKeyboard(port, k.opts.Logger)
	kb.OnCommand(func(r device.Received) {
		fyne.Do(func() { k.showCommand(r) })
	})
	kb.Start()
	k.kb = kb

	go func() {
		<-kb.Done()
		fyne.Do(func() {
			if k.kb == kb {
				k.kb = nil
				k.setConnected(false, cfg.Device)
				k.appendLog("link closed")
			}
		})
	}()

	k.setConnected(true, cfg.Device)
	k.appendLog("connected to " + cfg.Device)
}

// Disconnect closes the link if open
func (k *KeypadTab) Disconnect() {
	if k.kb == nil {
		return
	}
	kb := k.kb
	k.kb = nil
	kb.Close()
	k.setConnected(false, "")
}

func (k *KeypadTab) setConnected(connected bool, dev string) {
	if connected {
		k.connectBtn.SetText("Disconnect")
		k.onStatus("Connected to " + dev)
		return
	}
	k.connectBtn.SetText("Connect")
	k.onStatus("Disconnected")
	for _, led := range k.leds {
		led.FillColor = ledOff
		led.Refresh()
	}
}

func (k *KeypadTab) sendCell() {
	var dots []int
	for i, check := range k.dotChecks {
		if check.Checked {
			dots = append(dots, i+1)
		}
	}
	c := braille.MustFromDots(dots...)

	k.send(protocol.FormatCell(c), func(kb *device.Keyboard) error {
		return kb.SendCell(c)
	})
	for _, check := range k.dotChecks {
		check.SetChecked(false)
	}
}

func (k *KeypadTab) send(label string, fn func(*device.Keyboard) error) {
	if k.kb == nil {
		dialog.ShowInformation("Not Connected", "Connect to a serial device first", k.window)
		return
	}
	if err := fn(k.kb); err != nil {
		k.appendLog("send failed: " + err.Error())
		return
	}
	k.appendLog("-> " + label)
}

func (k *KeypadTab) showCommand(r device.Received) {
	k.appendLog("<- " + r.Raw)

	switch r.Command.Kind {
	case protocol.CommandLed:
		fill := ledOff
		if r.Command.Action == protocol.LedOn {
			fill = ledOn
		}
		for _, dot := range r.Command.Dots {
			k.leds[dot-1].FillColor = fill
			k.leds[dot-1].Refresh()
		}

	case protocol.CommandVibrate:
		if k.kb == nil {
			return
		}
		n, _ := k.kb.Vibrations()
		k.vibrate.SetText(fmt.Sprintf("Vibration: buzzing %dms (%d total)", r.Command.DurationMs, n))
		k.vibrate.Importance = widget.WarningImportance
		k.vibrate.Refresh()
		time.AfterFunc(time.Duration(r.Command.DurationMs)*time.Millisecond, func() {
			fyne.Do(func() {
				k.vibrate.SetText(fmt.Sprintf("Vibration: idle (%d total)", n))
				k.vibrate.Importance = widget.MediumImportance
				k.vibrate.Refresh()
			})
		})
	}
}

func (k *KeypadTab) appendLog(line string) {
	k.logLines = append(k.logLines, time.Now().Format("15:04:05.000")+" "+line)
	if len(k.logLines) > 200 {
		k.logLines = k.logLines[len(k.logLines)-200:]
	}
	k.log.SetText(strings.Join(k.logLines, "\n"))
}
