package types

import (
	"math"
	"sync/atomic"
)

// QueuePositionNotWaiting is the sentinel queue position for a profile that
// neither holds a slot nor waits for one. Position 0 means the profile's
// worker currently holds a slot; positions >= 1 are live wait-queue ranks.
const QueuePositionNotWaiting = math.MaxInt32

// Profile is one automation profile competing for emulator slots.
// Configuration fields are loaded from the roster file; the queue position
// is transient runtime state owned by the slot manager.
type Profile struct {
	// Stable identifier for the profile.
	ID string `json:"id" yaml:"id" toml:"id"`
	// Human-friendly display name.
	Name string `json:"name" yaml:"name" toml:"name"`
	// Scheduling priority; higher runs first.
	Priority int `json:"priority" yaml:"priority" toml:"priority"`
	// Identifier of the emulator instance assigned to this profile.
	Emulator string `json:"emulator" yaml:"emulator" toml:"emulator"`
	// Optional per-profile idle tolerance override in minutes.
	IdleLimitMin int `json:"idle_limit_min,omitempty" yaml:"idle_limit_min" toml:"idle_limit_min"`

	queuePos atomic.Int32
}

// QueuePosition returns the profile's current slot wait-queue position.
func (p *Profile) QueuePosition() int { return int(p.queuePos.Load()) }

// SetQueuePosition records the profile's current slot wait-queue position.
// Written only by the slot manager (or its position callback); read freely.
func (p *Profile) SetQueuePosition(n int) {
	if n < 0 || n > QueuePositionNotWaiting {
		n = QueuePositionNotWaiting
	}
	p.queuePos.Store(int32(n))
}
