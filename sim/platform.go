package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Resource is a capacity shared by the activities that claim it.
type Resource struct {
	name     string
	capacity float64
	on       bool
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Capacity returns the resource capacity per simulated second.
func (r *Resource) Capacity() float64 { return r.capacity }

// IsOn reports whether the resource can serve activities.
func (r *Resource) IsOn() bool { return r.on }

// Claim is the share of one resource consumed per unit of activity progress.
type Claim struct {
	Resource *Resource
	Weight   float64
}

// Demand describes what a started activity asks of the resource model.
type Demand struct {
	Amount float64
	Claims []Claim
	// rate cap, 0 means unbounded
	Bound float64
	// share of contended resources relative to other activities, 0 means 1
	Priority float64
}

// Host is a machine running actors. Its capacity is its speed in flops/s.
type Host struct {
	Resource
	engine *Engine
	actors map[Pid]*Actor
	disks  []*Disk
	// actors recreated when the host comes back on
	restartable []*actorTemplate
}

// Speed returns the host speed in flops per second.
func (h *Host) Speed() float64 { return h.capacity }

// Disks returns the disks attached to the host.
func (h *Host) Disks() []*Disk { return h.disks }

// Actors returns the live actors of the host ordered by pid.
func (h *Host) Actors() []*Actor {
	out := make([]*Actor, 0, len(h.actors))
	for _, a := range h.actors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pid < out[j].pid })
	return out
}

// AddDisk attaches a disk with the given read and write bandwidths in bytes/s.
func (h *Host) AddDisk(name string, readBandwidth, writeBandwidth float64) *Disk {
	d := &Disk{
		name:  name,
		host:  h,
		read:  &Resource{name: name + ":read", capacity: readBandwidth, on: true},
		write: &Resource{name: name + ":write", capacity: writeBandwidth, on: true},
	}
	h.disks = append(h.disks, d)
	return d
}

// Disk looks up an attached disk by name.
func (h *Host) Disk(name string) *Disk {
	for _, d := range h.disks {
		if d.name == name {
			return d
		}
	}
	return nil
}

// TurnOff stops the host: its actors are killed and every activity using it
// fails at the next advance of the clock.
func (h *Host) TurnOff() {
	h.engine.checkKernel()
	if !h.on {
		return
	}
	logrus.Infof("[t=%.6f] host %s turned off", h.engine.clock, h.name)
	h.on = false
	for _, d := range h.disks {
		d.read.on = false
		d.write.on = false
	}
	for _, a := range h.Actors() {
		if a.autoRestart {
			h.restartable = append(h.restartable, a.template())
		}
		a.Kill()
	}
}

// TurnOn restarts the host and recreates its auto-restart actors.
func (h *Host) TurnOn() {
	h.engine.checkKernel()
	if h.on {
		return
	}
	logrus.Infof("[t=%.6f] host %s turned on", h.engine.clock, h.name)
	h.on = true
	for _, d := range h.disks {
		d.read.on = true
		d.write.on = true
	}
	pending := h.restartable
	h.restartable = nil
	for _, tpl := range pending {
		if _, err := h.engine.spawn(tpl, 0); err != nil {
			logrus.Warnf("[t=%.6f] could not restart actor %s on %s: %v", h.engine.clock, tpl.name, h.name, err)
		}
	}
}

// Link is a network link. Its capacity is its bandwidth in bytes/s.
type Link struct {
	Resource
}

// Bandwidth returns the link bandwidth in bytes per second.
func (l *Link) Bandwidth() float64 { return l.capacity }

// TurnOff makes every communication crossing the link fail.
func (l *Link) TurnOff() { l.on = false }

// TurnOn brings the link back.
func (l *Link) TurnOn() { l.on = true }

// IoOp selects the direction of an Io activity.
type IoOp string

const (
	IoRead  IoOp = "read"
	IoWrite IoOp = "write"
)

// Disk is a storage device attached to a host.
type Disk struct {
	name  string
	host  *Host
	read  *Resource
	write *Resource
}

// Name returns the disk name.
func (d *Disk) Name() string { return d.name }

// Host returns the host the disk is attached to.
func (d *Disk) Host() *Host { return d.host }

// IsOn reports whether the disk can serve requests.
func (d *Disk) IsOn() bool { return d.read.on && d.write.on }

func (d *Disk) resource(op IoOp) *Resource {
	if op == IoWrite {
		return d.write
	}
	return d.read
}

type routeKey struct{ src, dst string }

// Platform is the set of hosts and links of a simulation, plus the route
// table between hosts. Hosts without a route are reachable with no link
// constraint.
type Platform struct {
	hosts  map[string]*Host
	order  []string
	links  map[string]*Link
	routes map[routeKey][]*Link
}

func newPlatform() *Platform {
	return &Platform{
		hosts:  make(map[string]*Host),
		links:  make(map[string]*Link),
		routes: make(map[routeKey][]*Link),
	}
}

// Host looks up a host by name.
func (p *Platform) Host(name string) *Host { return p.hosts[name] }

// Link looks up a link by name.
func (p *Platform) Link(name string) *Link { return p.links[name] }

// Hosts returns every host in creation order.
func (p *Platform) Hosts() []*Host {
	out := make([]*Host, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.hosts[name])
	}
	return out
}

// Route returns the links crossed from src to dst.
func (p *Platform) Route(src, dst *Host) []*Link {
	if src == nil || dst == nil || src == dst {
		return nil
	}
	return p.routes[routeKey{src.name, dst.name}]
}

// AddHost creates a host with the given speed in flops/s.
func (e *Engine) AddHost(name string, speed float64) (*Host, error) {
	if _, ok := e.platform.hosts[name]; ok {
		return nil, fmt.Errorf("host %q already exists", name)
	}
	if speed <= 0 {
		return nil, fmt.Errorf("host %q: speed must be positive, got %g", name, speed)
	}
	h := &Host{
		Resource: Resource{name: name, capacity: speed, on: true},
		engine:   e,
		actors:   make(map[Pid]*Actor),
	}
	e.platform.hosts[name] = h
	e.platform.order = append(e.platform.order, name)
	return h, nil
}

// AddLink creates a link with the given bandwidth in bytes/s.
func (e *Engine) AddLink(name string, bandwidth float64) (*Link, error) {
	if _, ok := e.platform.links[name]; ok {
		return nil, fmt.Errorf("link %q already exists", name)
	}
	if bandwidth <= 0 {
		return nil, fmt.Errorf("link %q: bandwidth must be positive, got %g", name, bandwidth)
	}
	l := &Link{Resource: Resource{name: name, capacity: bandwidth, on: true}}
	e.platform.links[name] = l
	return l, nil
}

// AddRoute declares the links crossed between src and dst, in both directions.
func (e *Engine) AddRoute(src, dst *Host, links ...*Link) error {
	if src == nil || dst == nil {
		return fmt.Errorf("route endpoints must be non-nil")
	}
	if src == dst {
		return fmt.Errorf("route from %s to itself", src.name)
	}
	e.platform.routes[routeKey{src.name, dst.name}] = links
	back := make([]*Link, len(links))
	for i, l := range links {
		back[len(links)-1-i] = l
	}
	e.platform.routes[routeKey{dst.name, src.name}] = back
	return nil
}
