package hostmanager

// State is the lifecycle state of a managed host process.
type State int

const (
	// StateNotStarted is the state of a capability nobody asked for yet.
	StateNotStarted State = iota
	// StateStarting means the process is being launched.
	StateStarting
	// StateHandshaking means the process runs and the protocol version is being negotiated.
	StateHandshaking
	// StateReady means the host serves requests.
	StateReady
	// StateUnresponsive means the host missed a heartbeat and is about to be killed.
	StateUnresponsive
	// StateCrashed means the process exited or its channel disconnected unexpectedly.
	StateCrashed
	// StateRestarting means a replacement process is being started.
	StateRestarting
	// StateShutDown is terminal: the host was closed, or crashed too often to be restarted.
	StateShutDown
)

var _stateNames = [...]string{
	StateNotStarted:   "NotStarted",
	StateStarting:     "Starting",
	StateHandshaking:  "Handshaking",
	StateReady:        "Ready",
	StateUnresponsive: "Unresponsive",
	StateCrashed:      "Crashed",
	StateRestarting:   "Restarting",
	StateShutDown:     "ShutDown",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(_stateNames) {
		return "Unknown"
	}
	return _stateNames[s]
}

// Capability names a host process kind.
type Capability string

const (
	// TypeProviders evaluates third-party type providers.
	TypeProviders Capability = "typeproviders"
	// Formatter runs the code formatting engine.
	Formatter Capability = "formatter"
)
