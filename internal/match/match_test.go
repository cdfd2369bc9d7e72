package match

import (
	"encoding/json"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/guunterr/thrust/pkg/vec2"
	"github.com/guunterr/thrust/pkg/world"
)

type fakePresence struct {
	userID string
}

func (p fakePresence) GetUserId() string              { return p.userID }
func (p fakePresence) GetSessionId() string           { return "session-" + p.userID }
func (p fakePresence) GetNodeId() string              { return "node" }
func (p fakePresence) GetHidden() bool                { return false }
func (p fakePresence) GetPersistence() bool           { return true }
func (p fakePresence) GetUsername() string            { return p.userID }
func (p fakePresence) GetStatus() string               { return "" }
func (p fakePresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonJoin }

type fakeBroadcaster struct {
	calls []broadcastCall
}

type broadcastCall struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

func (f *fakeBroadcaster) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	f.calls = append(f.calls, broadcastCall{opCode, data, presences})
	return nil
}

func newTestState() *State {
	return &State{
		World:        world.New(),
		presences:    make(map[string]runtime.Presence),
		playerBodies: make(map[string]uint64),
	}
}

func TestSpawnPlayerLockedAddsBodyAndTracksIt(t *testing.T) {
	s := newTestState()
	id := s.spawnPlayerLocked("alice")

	if got, ok := s.playerBodies["alice"]; !ok || got != id {
		t.Fatalf("playerBodies[alice]: got %d,%v want %d,true", got, ok, id)
	}
	if s.World.BodyCount() != 1 {
		t.Fatalf("BodyCount: got %d want 1", s.World.BodyCount())
	}
}

func TestApplyInputLockedUnknownPlayerRejected(t *testing.T) {
	s := newTestState()
	ack := s.applyInputLocked(&PlayerInput{PlayerID: "ghost", Action: "move"})
	if ack.Approved {
		t.Error("expected rejection for unknown player")
	}
}

func TestApplyInputLockedMoveClampsSpeed(t *testing.T) {
	s := newTestState()
	id := s.spawnPlayerLocked("bob")

	ack := s.applyInputLocked(&PlayerInput{PlayerID: "bob", Action: "move", VelocityX: maxSpeed * 10, VelocityY: 0})
	if !ack.Approved {
		t.Fatalf("expected approval, got reason %q", ack.Reason)
	}
	b, err := s.World.Body(id)
	if err != nil {
		t.Fatal(err)
	}
	if b.Velocity.Length() > maxSpeed+1e-9 {
		t.Errorf("velocity not clamped: got speed %v want <= %v", b.Velocity.Length(), maxSpeed)
	}
}

func TestApplyInputLockedTeleportZeroesVelocity(t *testing.T) {
	s := newTestState()
	id := s.spawnPlayerLocked("carol")
	s.World.SetVelocity(id, vec2.New(10, 10))

	ack := s.applyInputLocked(&PlayerInput{PlayerID: "carol", Action: "teleport", X: 50, Y: 60})
	if !ack.Approved {
		t.Fatalf("expected approval, got reason %q", ack.Reason)
	}
	b, err := s.World.Body(id)
	if err != nil {
		t.Fatal(err)
	}
	if b.Transform.Position != (vec2.Vector2{50, 60}) {
		t.Errorf("Position: got %v want (50,60)", b.Transform.Position)
	}
	if b.Velocity != vec2.Zero {
		t.Errorf("Velocity: got %v want zero after teleport", b.Velocity)
	}
}

func TestApplyInputLockedUnknownActionRejected(t *testing.T) {
	s := newTestState()
	s.spawnPlayerLocked("dave")
	ack := s.applyInputLocked(&PlayerInput{PlayerID: "dave", Action: "fly"})
	if ack.Approved {
		t.Error("expected rejection for an unrecognised action")
	}
}

func TestBroadcastLockedSkipsWithNoPresences(t *testing.T) {
	s := newTestState()
	fb := &fakeBroadcaster{}
	s.broadcastLocked(fb)
	if len(fb.calls) != 0 {
		t.Errorf("expected no broadcast with zero presences, got %d", len(fb.calls))
	}
}

func TestBroadcastLockedSendsWorldSnapshot(t *testing.T) {
	s := newTestState()
	s.presences["alice"] = fakePresence{userID: "alice"}
	id := s.spawnPlayerLocked("alice")
	s.currentTick = 7

	fb := &fakeBroadcaster{}
	s.broadcastLocked(fb)

	if len(fb.calls) != 1 {
		t.Fatalf("expected one broadcast call, got %d", len(fb.calls))
	}
	call := fb.calls[0]
	if call.opCode != OpCodeWorldUpdate {
		t.Errorf("opCode: got %d want %d", call.opCode, OpCodeWorldUpdate)
	}

	var snap WorldSnapshot
	if err := json.Unmarshal(call.data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Tick != 7 {
		t.Errorf("Tick: got %d want 7", snap.Tick)
	}
	found := false
	for _, body := range snap.Bodies {
		if body.ID == id {
			found = true
		}
	}
	if !found {
		t.Error("broadcast snapshot missing the spawned player's body")
	}
}
