package sim

// Comm is a transfer of a payload between two hosts.
type Comm struct {
	ActivityBase
	source      *Host
	destination *Host
	rate        float64
}

// NewComm creates a transfer of bytes with no endpoints yet.
func (e *Engine) NewComm(name string, bytes float64) *Comm {
	c := &Comm{}
	c.init(e, KindComm, c, name, bytes)
	return c
}

// IsAssigned reports whether both endpoints are set.
func (c *Comm) IsAssigned() bool { return c.source != nil && c.destination != nil }

func (c *Comm) Source() *Host      { return c.source }
func (c *Comm) Destination() *Host { return c.destination }

// SetSource sets the sending host. Allowed until the activity is started.
func (c *Comm) SetSource(h *Host) error {
	if c.state != StateInited && c.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("source", c.name, c.state)
	}
	c.source = h
	return nil
}

// SetDestination sets the receiving host. Allowed until the activity is started.
func (c *Comm) SetDestination(h *Host) error {
	if c.state != StateInited && c.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("destination", c.name, c.state)
	}
	c.destination = h
	return nil
}

// SetPayloadSize changes the number of bytes. Only allowed before the first Start.
func (c *Comm) SetPayloadSize(bytes float64) error {
	return c.setAmount("payload size", bytes)
}

// SetRate caps the transfer rate in bytes/s. Zero removes the cap.
func (c *Comm) SetRate(rate float64) error {
	if c.state != StateInited && c.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("rate", c.name, c.state)
	}
	c.rate = rate
	return nil
}

// Demand claims every link of the route. Both endpoints are claimed with a
// zero weight: they do not limit the rate but the transfer fails if either
// is turned off.
func (c *Comm) Demand() Demand {
	claims := []Claim{
		{Resource: &c.source.Resource, Weight: 0},
		{Resource: &c.destination.Resource, Weight: 0},
	}
	for _, l := range c.engine.platform.Route(c.source, c.destination) {
		claims = append(claims, Claim{Resource: &l.Resource, Weight: 1})
	}
	return Demand{Amount: c.amount, Claims: claims, Bound: c.rate}
}
