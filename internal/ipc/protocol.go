// Package ipc carries daemon control requests over a unix socket as
// newline-delimited JSON.
package ipc

// Control commands understood by the listening daemon.
const (
	CommandStatus = "status"
	CommandVolume = "volume"
	CommandMode   = "mode"
	CommandMute   = "mute"
	CommandUnmute = "unmute"
	CommandSay    = "say"
	CommandPlay   = "play"
	CommandStop   = "stop"
)

type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response reports the daemon state after a request. Volume, Mode and Muted
// are filled on every successful response from the session controller.
type Response struct {
	OK      bool     `json:"ok"`
	State   string   `json:"state,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	Muted   *bool    `json:"muted,omitempty"`
	Keys    int64    `json:"keys,omitempty"`
}

// Arg returns the i-th argument or "".
func (r Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}
