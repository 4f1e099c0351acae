//go:build !tinygo

package hal

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// The simulator backs the WiFi surface with real sockets on loopback:
// a TCP listener for the deck protocol, a UDP responder for discovery
// and an HTTP portal for provisioning. Association is faked with a
// short delay so the firmware sees the same edge ordering as on
// hardware.
const (
	hostTCPAddrDefault  = "127.0.0.1:8266"
	hostUDPAddrDefault  = ":8888"
	hostProvAddrDefault = ":8080"

	hostAssocDelay   = 1200 * time.Millisecond
	hostWifiRxLimit  = 64 * 1024
	hostDiscoverWant = "ESP32_DECK_DISCOVER"
	hostDiscoverAck  = "ESP32_DECK_ACK"
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

type hostCreds struct {
	ssid     string
	password string
}

type hostWifi struct {
	log *hostLogger

	mu         sync.Mutex
	gen        int
	associated bool
	forcedDown bool
	ip         [4]byte

	running bool
	ln      net.Listener
	udp     net.PacketConn
	pending chan net.Conn
	client  *hostWifiClient

	provOn bool
	prov   *http.Server
	creds  chan hostCreds
}

func newHostWifi(log *hostLogger) *hostWifi {
	return &hostWifi{
		log:     log,
		pending: make(chan net.Conn, 1),
		creds:   make(chan hostCreds, 1),
	}
}

func (w *hostWifi) Connect(ssid, password string) error {
	if ssid == "" {
		return nil
	}
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.associated = false
	w.mu.Unlock()

	go func() {
		time.Sleep(hostAssocDelay)
		if os.Getenv("DECK_WIFI_FAIL") != "" {
			w.log.WriteLineString("hal: wifi association failed (DECK_WIFI_FAIL)")
			return
		}
		w.mu.Lock()
		if w.gen == gen {
			w.associated = true
			w.ip = [4]byte{192, 168, 4, 77}
		}
		w.mu.Unlock()
	}()
	return nil
}

func (w *hostWifi) Disconnect() {
	w.mu.Lock()
	w.gen++
	w.associated = false
	w.mu.Unlock()
}

func (w *hostWifi) LinkUp() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.associated && !w.forcedDown
}

func (w *hostWifi) IP() [4]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.associated {
		return [4]byte{}
	}
	return w.ip
}

// toggleLink simulates the access point dropping out and coming back
// (the F7 key in the window).
func (w *hostWifi) toggleLink() {
	w.mu.Lock()
	w.forcedDown = !w.forcedDown
	down := w.forcedDown
	w.mu.Unlock()
	if down {
		w.log.WriteLineString("hal: wifi link forced down")
	} else {
		w.log.WriteLineString("hal: wifi link restored")
	}
}

func (w *hostWifi) StartServer() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	ln, err := net.Listen("tcp", envOr("DECK_TCP_ADDR", hostTCPAddrDefault))
	if err != nil {
		return err
	}
	udp, err := net.ListenPacket("udp", envOr("DECK_UDP_ADDR", hostUDPAddrDefault))
	if err != nil {
		ln.Close()
		return err
	}

	w.mu.Lock()
	w.ln = ln
	w.udp = udp
	w.running = true
	w.mu.Unlock()

	go w.acceptLoop(ln)
	go w.discoveryLoop(udp)
	return nil
}

func (w *hostWifi) StopServer() {
	w.mu.Lock()
	ln, udp := w.ln, w.udp
	w.ln, w.udp = nil, nil
	w.running = false
	w.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	if udp != nil {
		udp.Close()
	}
	select {
	case c := <-w.pending:
		c.Close()
	default:
	}
	w.CloseClient()
}

func (w *hostWifi) acceptLoop(ln net.Listener) {
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		w.mu.Lock()
		busy := w.client != nil
		w.mu.Unlock()
		if busy {
			c.Close()
			continue
		}
		select {
		case w.pending <- c:
		default:
			c.Close()
		}
	}
}

func (w *hostWifi) discoveryLoop(udp net.PacketConn) {
	buf := make([]byte, 64)
	for {
		n, addr, err := udp.ReadFrom(buf)
		if err != nil {
			return
		}
		if strings.TrimSpace(string(buf[:n])) == hostDiscoverWant {
			udp.WriteTo([]byte(hostDiscoverAck), addr)
		}
	}
}

func (w *hostWifi) Accept() bool {
	w.mu.Lock()
	busy := w.client != nil
	w.mu.Unlock()
	if busy {
		return false
	}
	select {
	case c := <-w.pending:
		cl := &hostWifiClient{conn: c}
		w.mu.Lock()
		w.client = cl
		w.mu.Unlock()
		go cl.readLoop()
		return true
	default:
		return false
	}
}

func (w *hostWifi) ClientRead(p []byte) (int, error) {
	w.mu.Lock()
	cl := w.client
	w.mu.Unlock()
	if cl == nil {
		return 0, nil
	}
	return cl.read(p)
}

func (w *hostWifi) ClientWrite(p []byte) (int, error) {
	w.mu.Lock()
	cl := w.client
	w.mu.Unlock()
	if cl == nil {
		return 0, ErrClientGone
	}
	n, err := cl.conn.Write(p)
	if err != nil {
		w.CloseClient()
		return n, ErrClientGone
	}
	return n, nil
}

func (w *hostWifi) CloseClient() {
	w.mu.Lock()
	cl := w.client
	w.client = nil
	w.mu.Unlock()
	if cl != nil {
		cl.conn.Close()
	}
}

// hostWifiClient owns one attached TCP client. The reader goroutine
// closes over its own instance so a stale loop cannot touch the next
// client after a reconnect.
type hostWifiClient struct {
	conn net.Conn
	mu   sync.Mutex
	buf  []byte
	gone bool
}

func (c *hostWifiClient) readLoop() {
	tmp := make([]byte, 512)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.mu.Lock()
			if len(c.buf) < hostWifiRxLimit {
				c.buf = append(c.buf, tmp[:n]...)
			}
			c.mu.Unlock()
		}
		if err != nil {
			c.mu.Lock()
			c.gone = true
			c.mu.Unlock()
			return
		}
	}
}

func (c *hostWifiClient) read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		if c.gone {
			return 0, ErrClientGone
		}
		return 0, nil
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (w *hostWifi) StartProvisioning() error {
	w.mu.Lock()
	if w.provOn {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	ln, err := net.Listen("tcp", envOr("DECK_PROV_ADDR", hostProvAddrDefault))
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.provForm)
	mux.HandleFunc("/save", w.provSave)
	srv := &http.Server{Handler: mux}

	w.mu.Lock()
	w.prov = srv
	w.provOn = true
	w.mu.Unlock()

	go srv.Serve(ln)
	return nil
}

func (w *hostWifi) StopProvisioning() {
	w.mu.Lock()
	srv := w.prov
	w.prov = nil
	w.provOn = false
	w.mu.Unlock()
	if srv != nil {
		srv.Close()
	}
}

func (w *hostWifi) Provisioning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.provOn
}

func (w *hostWifi) PollCredentials() (string, string, bool) {
	select {
	case c := <-w.creds:
		return c.ssid, c.password, true
	default:
		return "", "", false
	}
}

func (w *hostWifi) provForm(wr http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(wr, r)
		return
	}
	fmt.Fprint(wr, `<!doctype html><title>Deck WiFi Setup</title>
<h1>Deck WiFi Setup</h1>
<form method="post" action="/save">
SSID: <input name="ssid"><br>
Password: <input name="password" type="password"><br>
<input type="submit" value="Save">
</form>`)
}

func (w *hostWifi) provSave(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(wr, "POST only", http.StatusMethodNotAllowed)
		return
	}
	ssid := r.FormValue("ssid")
	if ssid == "" {
		http.Error(wr, "ssid required", http.StatusBadRequest)
		return
	}
	select {
	case w.creds <- hostCreds{ssid: ssid, password: r.FormValue("password")}:
	default:
	}
	fmt.Fprintln(wr, "credentials saved, device will reconnect")
}
