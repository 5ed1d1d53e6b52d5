package types

// ProfilesResponse wraps the roster returned by GET /profiles.
type ProfilesResponse struct {
	// Registered profiles.
	Profiles []*Profile `json:"profiles"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: profile not found: p1
	Error string `json:"error" example:"profile not found: p1"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// CommandResponse acknowledges a control command.
type CommandResponse struct {
	// Outcome of the command.
	// example: ok
	Status string `json:"status" example:"ok"`
}

// QueueStatus summarizes one profile queue for /queues and /status.
type QueueStatus struct {
	// ID of the profile this queue belongs to.
	// example: farm-a-01
	ProfileID string `json:"profile_id" example:"farm-a-01"`
	// Display name of the profile.
	// example: Farm A / device 01
	ProfileName string `json:"profile_name" example:"Farm A / device 01"`
	// Whether the queue is paused (operator command or reconnect cooldown).
	// example: false
	Paused bool `json:"paused" example:"false"`
	// Whether the queue's worker loop is running.
	// example: true
	Running bool `json:"running" example:"true"`
	// Whether the queue is waiting out a reconnect cooldown.
	// example: false
	NeedsReconnect bool `json:"needs_reconnect" example:"false"`
	// Whether the reconnect cooldown has elapsed.
	// example: false
	ReadyToReconnect bool `json:"ready_to_reconnect" example:"false"`
	// Live slot wait-queue position (0 = holds a slot).
	// example: 2
	QueuePosition int `json:"queue_position" example:"2"`
	// Next time the queue has work due (unix seconds, 0 = immediately).
	// example: 1700000000
	NextDueUnix int64 `json:"next_due_unix" example:"1700000000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall scheduler state (e.g., idle, running, stopped).
	// example: running
	State string `json:"state" example:"running"`
	// Configured ceiling on concurrently active emulator slots.
	// example: 4
	SlotsMax int `json:"slots_max" example:"4"`
	// Slots currently held by queue workers.
	// example: 3
	SlotsActive int `json:"slots_active" example:"3"`
	// Workers currently waiting for a slot.
	// example: 5
	Waiting int `json:"waiting" example:"5"`
	// Registered queues and their runtime state.
	Queues []QueueStatus `json:"queues"`
	// Uptime of the daemon in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
