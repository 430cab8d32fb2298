package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"braillekbd/device"
	"braillekbd/serial"
)

func main() {
	dev := flag.String("device", "/dev/ttyUSB0", "Serial device the driver listens on")
	baud := flag.Int("baud", 9600, "Baud rate")
	script := flag.String("script", "-", "Keystroke script file, or - for stdin")
	listen := flag.Duration("listen", 2*time.Second, "How long to keep printing host commands after the script ends")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var in io.Reader = os.Stdin
	if *script != "-" {
		f, err := os.Open(*script)
		if err != nil {
			log.Fatalf("Failed to open script: %v", err)
		}
		defer f.Close()
		in = f
	}

	port, err := serial.Open(serial.PortConfig{
		Device:   *dev,
		BaudRate: *baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	})
	if err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}

	kb := device.NewKeyboard(port, logger)
	kb.OnCommand(func(r device.Received) {
		fmt.Printf("[%s] host: %s\n", r.At.Format("15:04:05.000"), r.Raw)
	})
	kb.Start()
	defer kb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Simulating keyboard on %s at %d baud\n", *dev, *baud)
	if *script == "-" {
		fmt.Println("Reading statements from stdin (dots 1 3 | cell 000101 | ctrl Enter | line TEXT | sleep 500ms)")
	}

	if err := kb.RunScript(ctx, in); err != nil && ctx.Err() == nil {
		log.Fatalf("Script failed: %v", err)
	}

	select {
	case <-time.After(*listen):
	case <-ctx.Done():
	case <-kb.Done():
		fmt.Printf("Link closed: %v\n", kb.Err())
	}

	leds := kb.LEDs()
	n, last := kb.Vibrations()
	fmt.Printf("LEDs lit: %v, vibrations: %d (last %dms)\n", litDots(leds[:]), n, last)
}

func litDots(leds []bool) []int {
	var dots []int
	for i, on := range leds {
		if on {
			dots = append(dots, i+1)
		}
	}
	return dots
}
