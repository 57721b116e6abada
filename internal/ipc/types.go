package ipc

import (
	"github.com/matjam/scrollpaper/internal/scheduler"
	"github.com/matjam/scrollpaper/internal/stream"
	"github.com/matjam/scrollpaper/internal/types"
)

type CommandType string

const (
	CommandStop   CommandType = "stop"
	CommandNext   CommandType = "next"
	CommandLoad   CommandType = "load"
	CommandStatus CommandType = "status"
)

type Command struct {
	Type CommandType `json:"type"`
	Args []string    `json:"args"`
}

// ManagerStatus is what the render loop reports about itself.
type ManagerStatus struct {
	Frame   types.FrameSize        `json:"frame"`
	Grid    string                 `json:"grid"`
	Uptime  string                 `json:"uptime"`
	Slots   []scheduler.SlotStatus `json:"slots"`
	Streams []stream.Stats         `json:"streams"`
}

type ManagerInterface interface {
	Status() ManagerStatus
	EnqueueCommand(Command) error
}

type StatusResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Version string        `json:"version"`
	PID     int           `json:"pid"`
	Socket  string        `json:"socket"`
	Config  string        `json:"config"`
	Manager ManagerStatus `json:"manager"`
}

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Loaded  int    `json:"loaded,omitempty"`
	Error   string `json:"error,omitempty"`
}
