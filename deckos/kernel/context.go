package kernel

// Context provides task-local access to kernel operations for the
// duration of one Step call.
type Context struct {
	k      *Kernel
	taskID TaskID

	blocked     bool
	blockOn     Endpoint
	blockOnTick bool
}

// TaskID returns the current task ID.
func (c *Context) TaskID() TaskID { return c.taskID }

// Now returns the current kernel tick (milliseconds since boot).
func (c *Context) Now() uint64 {
	if c.k == nil {
		return 0
	}
	return c.k.now
}

// TryRecv reads one message from the capability endpoint without blocking.
func (c *Context) TryRecv(epCap Capability) (Message, bool) {
	if !epCap.valid() || !epCap.canRecv() {
		return Message{}, false
	}
	if c.k == nil {
		return Message{}, false
	}
	return c.k.recv(epCap.ep)
}

// Recv reads one message from the capability endpoint. When the queue
// is empty it parks the task until a message arrives; the task must
// return from Step immediately after an unsuccessful Recv.
func (c *Context) Recv(epCap Capability) (Message, bool) {
	if msg, ok := c.TryRecv(epCap); ok {
		return msg, true
	}
	c.Block(epCap)
	return Message{}, false
}

// Block parks the task until a message arrives on the capability
// endpoint. The task must return from Step immediately after calling it.
func (c *Context) Block(epCap Capability) {
	if !epCap.valid() || !epCap.canRecv() {
		return
	}
	c.blocked = true
	c.blockOnTick = false
	c.blockOn = epCap.ep
}

// BlockOnTick parks the task until the next Kernel.TickTo call. The
// task must return from Step immediately after calling it.
func (c *Context) BlockOnTick() {
	c.blocked = true
	c.blockOnTick = true
}

// Send sends a message to the capability endpoint.
func (c *Context) Send(fromCap, toCap Capability, kind uint16, payload []byte) bool {
	return c.SendCap(fromCap, toCap, kind, payload, Capability{})
}

// SendCap sends a message and transfers an optional capability.
func (c *Context) SendCap(fromCap, toCap Capability, kind uint16, payload []byte, xfer Capability) bool {
	return c.SendCapResult(fromCap, toCap, kind, payload, xfer) == SendOK
}

// SendCapResult sends a message and transfers an optional capability.
func (c *Context) SendCapResult(fromCap, toCap Capability, kind uint16, payload []byte, xfer Capability) SendResult {
	if !fromCap.valid() {
		return SendErrInvalidFromCap
	}
	if !fromCap.canSend() {
		return SendErrFromNoSendRight
	}
	if !toCap.valid() {
		return SendErrInvalidToCap
	}
	if !toCap.canSend() {
		return SendErrToNoSendRight
	}
	return c.k.send(fromCap.ep, toCap.ep, kind, payload, xfer)
}

// SendTo sends a message to the capability endpoint.
//
// The message From field is set to 0 (unknown).
func (c *Context) SendTo(toCap Capability, kind uint16, payload []byte) bool {
	return c.SendToCap(toCap, kind, payload, Capability{})
}

// SendToCap sends a message and transfers an optional capability.
//
// The message From field is set to 0 (unknown).
func (c *Context) SendToCap(toCap Capability, kind uint16, payload []byte, xfer Capability) bool {
	return c.SendToCapResult(toCap, kind, payload, xfer) == SendOK
}

// SendToCapResult sends a message and transfers an optional capability.
//
// The message From field is set to 0 (unknown).
func (c *Context) SendToCapResult(toCap Capability, kind uint16, payload []byte, xfer Capability) SendResult {
	if !toCap.valid() {
		return SendErrInvalidToCap
	}
	if !toCap.canSend() {
		return SendErrToNoSendRight
	}
	if c.k == nil {
		return SendErrNoEndpoint
	}
	return c.k.send(0, toCap.ep, kind, payload, xfer)
}

// NewEndpoint allocates a new endpoint and returns a capability for it.
func (c *Context) NewEndpoint(rights Rights) Capability {
	if c.k == nil {
		return Capability{}
	}
	return c.k.NewEndpoint(rights)
}
