package main

import (
	"flag"
	"log/slog"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"braillekbd/gui/ui"
)

func main() {
	device := flag.String("device", "", "Serial device to play the keyboard on (e.g. one end of a socat pty pair)")
	baud := flag.Int("baud", 9600, "Baud rate")
	api := flag.String("api", "http://localhost:8080", "Driver monitoring URL")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Create the app
	myApp := app.New()
	myWindow := myApp.NewWindow("Braille Keyboard Simulator")
	myWindow.Resize(fyne.NewSize(1000, 700))

	// Create the main UI
	mainUI := ui.NewMainUI(myWindow, ui.Options{
		Device:   *device,
		BaudRate: *baud,
		APIURL:   *api,
		Logger:   logger,
	})

	// Set up the window content
	myWindow.SetContent(mainUI.Build())
	myWindow.SetOnClosed(mainUI.Close)
	myWindow.ShowAndRun()
}
