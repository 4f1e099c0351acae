//go:build !tinygo

// Command deckctl talks to a running deck from the host: discover it
// on the LAN, watch its button stream, or fire one-off LED and effect
// commands. It speaks the same line grammar over TCP or the USB
// serial port.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/wire"
)

func main() {
	var (
		mode      = flag.String("mode", "watch", "discover|watch|send|led|effect.")
		addr      = flag.String("addr", "127.0.0.1:8266", "Deck TCP address.")
		serialDev = flag.String("serial", "", "Serial device (overrides -addr).")
		baud      = flag.Int("baud", 115200, "Serial baud rate.")
		timeout   = flag.Duration("timeout", 2*time.Second, "Discovery/reply wait.")
		pingEvery = flag.Duration("ping", 5*time.Second, "Keepalive interval in watch mode (0 = off).")
		line      = flag.String("line", "", "Raw line for -mode send.")
		index     = flag.Int("index", 0, "Strip index for -mode led (0-based).")
		color     = flag.String("color", "", "RRGGBB hex for -mode led, or \"off\".")
		effect    = flag.String("effect", "", "Effect name for -mode effect (NONE stops).")
	)
	flag.Parse()

	var err error
	switch strings.ToLower(*mode) {
	case "discover":
		err = discover(*timeout)
	case "watch":
		err = withLink(*addr, *serialDev, *baud, func(rw io.ReadWriteCloser) error {
			return watch(rw, *pingEvery)
		})
	case "send":
		if *line == "" {
			fatalf("usage: deckctl -mode send -line \"PING\"")
		}
		err = withLink(*addr, *serialDev, *baud, func(rw io.ReadWriteCloser) error {
			return oneShot(rw, *line, *timeout)
		})
	case "led":
		if *color == "" {
			fatalf("usage: deckctl -mode led -index 3 -color FF8800|off")
		}
		cmd := ledLine(*index, *color)
		err = withLink(*addr, *serialDev, *baud, func(rw io.ReadWriteCloser) error {
			return oneShot(rw, cmd, *timeout)
		})
	case "effect":
		e, ok := proto.ParseEffect(strings.ToUpper(*effect))
		if !ok {
			fatalf("unknown effect %q", *effect)
		}
		err = withLink(*addr, *serialDev, *baud, func(rw io.ReadWriteCloser) error {
			return oneShot(rw, "ALL_LED:"+e.String(), *timeout)
		})
	default:
		fatalf("unknown mode: %s", *mode)
	}
	if err != nil {
		fatalf("%s: %v", *mode, err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

func ledLine(index int, color string) string {
	if strings.EqualFold(color, "off") {
		return "LED:" + strconv.Itoa(index) + ":OFF"
	}
	return "LED:" + strconv.Itoa(index) + ":" + strings.ToUpper(color)
}

func withLink(addr, serialDev string, baud int, fn func(io.ReadWriteCloser) error) error {
	rw, err := dial(addr, serialDev, baud)
	if err != nil {
		return err
	}
	defer func() { _ = rw.Close() }()
	return fn(rw)
}

func dial(addr, serialDev string, baud int) (io.ReadWriteCloser, error) {
	if serialDev != "" {
		return serial.OpenPort(&serial.Config{Name: serialDev, Baud: baud})
	}
	return net.DialTimeout("tcp", addr, 3*time.Second)
}

// discover broadcasts the probe and prints every deck that answers
// within the timeout.
func discover(timeout time.Duration) error {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, target := range []string{"255.255.255.255:8888", "127.0.0.1:8888"} {
		a, err := net.ResolveUDPAddr("udp4", target)
		if err != nil {
			continue
		}
		_, _ = conn.WriteTo([]byte(wire.DiscoverRequest), a)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 64)
	seen := map[string]bool{}
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		if strings.TrimSpace(string(buf[:n])) != wire.DiscoverReply {
			continue
		}
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil || seen[host] {
			continue
		}
		seen[host] = true
		fmt.Println(net.JoinHostPort(host, "8266"))
	}
	if len(seen) == 0 {
		return errors.New("no decks answered")
	}
	return nil
}

// watch performs the handshake and streams the deck's lines until the
// connection drops or the user interrupts.
func watch(rw io.ReadWriteCloser, pingEvery time.Duration) error {
	if err := writeLine(rw, wire.LineConnected); err != nil {
		return err
	}

	lines := make(chan string, 16)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(rw)
		for sc.Scan() {
			lines <- sc.Text()
		}
		readErr <- sc.Err()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	var ping <-chan time.Time
	if pingEvery > 0 {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case <-stop:
			// Leave cleanly so the deck drops back to NONE.
			return writeLine(rw, wire.LineDisconnect)
		case err := <-readErr:
			if err != nil {
				return err
			}
			return errors.New("connection closed")
		case l := <-lines:
			fmt.Println(l)
		case <-ping:
			if err := writeLine(rw, wire.LinePing); err != nil {
				return err
			}
		}
	}
}

// oneShot fires a single command without the handshake and echoes
// whatever the deck says back within the wait window.
func oneShot(rw io.ReadWriteCloser, line string, wait time.Duration) error {
	if err := writeLine(rw, line); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(rw)
		for sc.Scan() {
			fmt.Println(sc.Text())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(wait):
	}
	return nil
}

func writeLine(w io.Writer, line string) error {
	_, err := w.Write([]byte(line + "\n"))
	return err
}
