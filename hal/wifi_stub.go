package hal

// nullWifi stands in on targets without a usable radio driver. The
// link never comes up, so the firmware stays on the USB transport.
type nullWifi struct{}

func (nullWifi) Connect(ssid, password string) error {
	_ = ssid
	_ = password
	return ErrNotImplemented
}

func (nullWifi) Disconnect()        {}
func (nullWifi) LinkUp() bool       { return false }
func (nullWifi) IP() [4]byte        { return [4]byte{} }
func (nullWifi) StartServer() error { return ErrNotImplemented }
func (nullWifi) StopServer()        {}

func (nullWifi) Accept() bool { return false }

func (nullWifi) ClientRead(p []byte) (int, error) {
	_ = p
	return 0, nil
}

func (nullWifi) ClientWrite(p []byte) (int, error) {
	_ = p
	return 0, ErrClientGone
}

func (nullWifi) CloseClient() {}

func (nullWifi) StartProvisioning() error { return ErrNotImplemented }
func (nullWifi) StopProvisioning()        {}
func (nullWifi) Provisioning() bool       { return false }

func (nullWifi) PollCredentials() (string, string, bool) {
	return "", "", false
}
