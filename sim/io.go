package sim

// Io is a read or a write of a number of bytes on a disk.
type Io struct {
	ActivityBase
	disk *Disk
	op   IoOp
}

// NewIo creates an unassigned disk operation.
func (e *Engine) NewIo(name string, bytes float64, op IoOp) *Io {
	if op == "" {
		op = IoRead
	}
	i := &Io{op: op}
	i.init(e, KindIo, i, name, bytes)
	return i
}

// IsAssigned reports whether a disk was set.
func (i *Io) IsAssigned() bool { return i.disk != nil }

func (i *Io) Disk() *Disk { return i.disk }
func (i *Io) Op() IoOp    { return i.op }

// SetDisk places the operation. Allowed until the activity is started.
func (i *Io) SetDisk(d *Disk) error {
	if i.state != StateInited && i.state != StateStarting {
		return ErrActivityStarted.GenWithStackByArgs("disk", i.name, i.state)
	}
	i.disk = d
	return nil
}

// SetSize changes the number of bytes. Only allowed before the first Start.
func (i *Io) SetSize(bytes float64) error {
	return i.setAmount("size", bytes)
}

// SetOp switches between read and write. Only allowed before the first Start.
func (i *Io) SetOp(op IoOp) error {
	if i.state != StateInited {
		return ErrActivityStarted.GenWithStackByArgs("operation", i.name, i.state)
	}
	i.op = op
	return nil
}

// Demand claims the disk bandwidth of the operation's direction and binds
// the operation to the disk's host.
func (i *Io) Demand() Demand {
	return Demand{
		Amount: i.amount,
		Claims: []Claim{
			{Resource: i.disk.resource(i.op), Weight: 1},
			{Resource: &i.disk.host.Resource, Weight: 0},
		},
	}
}
