package control

import (
	"errors"
	"testing"

	"github.com/e7canasta/frametie/config"
)

// handleCommand is pure dispatch, so it is testable without a broker.

func newTestHandler(callbacks CommandCallbacks) *Handler {
	return NewHandler(config.MQTT{QoS: 1}, nil, callbacks)
}

func TestHandleCommand_Lifecycle(t *testing.T) {
	var started, paused, resumed, stopped int
	h := newTestHandler(CommandCallbacks{
		OnStart:  func() error { started++; return nil },
		OnPause:  func() error { paused++; return nil },
		OnResume: func() error { resumed++; return nil },
		OnStop:   func() error { stopped++; return nil },
		OnGetStatus: func() map[string]interface{} {
			return map[string]interface{}{"state": "running"}
		},
	})

	for _, name := range []string{"start", "pause", "resume", "stop"} {
		resp := h.handleCommand(Command{Command: name})
		if resp.CommandAck != name {
			t.Errorf("%s: CommandAck = %q, want %q", name, resp.CommandAck, name)
		}
		if resp.Status != "success" {
			t.Errorf("%s: Status = %q (%s), want success", name, resp.Status, resp.Error)
		}
		if resp.Data["state"] != "running" {
			t.Errorf("%s: Data = %v, want status data attached", name, resp.Data)
		}
	}

	if started != 1 || paused != 1 || resumed != 1 || stopped != 1 {
		t.Errorf("callback counts = %d/%d/%d/%d, want 1 each", started, paused, resumed, stopped)
	}
}

func TestHandleCommand_GetStatus(t *testing.T) {
	h := newTestHandler(CommandCallbacks{
		OnGetStatus: func() map[string]interface{} {
			return map[string]interface{}{"state": "paused", "frames_copied": uint64(42)}
		},
	})

	resp := h.handleCommand(Command{Command: "get_status"})
	if resp.Status != "success" {
		t.Fatalf("Status = %q, want success", resp.Status)
	}
	if resp.Data["state"] != "paused" {
		t.Errorf("Data[state] = %v, want paused", resp.Data["state"])
	}
}

func TestHandleCommand_CallbackError(t *testing.T) {
	h := newTestHandler(CommandCallbacks{
		OnPause: func() error { return errors.New("cannot pause a tie that is not running") },
	})

	resp := h.handleCommand(Command{Command: "pause"})
	if resp.Status != "error" {
		t.Fatalf("Status = %q, want error", resp.Status)
	}
	if resp.Error != "cannot pause a tie that is not running" {
		t.Errorf("Error = %q, want the callback error", resp.Error)
	}
}

func TestHandleCommand_NotImplemented(t *testing.T) {
	h := newTestHandler(CommandCallbacks{})

	resp := h.handleCommand(Command{Command: "start"})
	if resp.Status != "error" || resp.Error != "start not implemented" {
		t.Errorf("response = %+v, want start not implemented", resp)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	h := newTestHandler(CommandCallbacks{})

	resp := h.handleCommand(Command{Command: "reboot"})
	if resp.Status != "error" {
		t.Fatalf("Status = %q, want error", resp.Status)
	}
	if resp.Error != "unknown command: reboot" {
		t.Errorf("Error = %q, want unknown command message", resp.Error)
	}
}
