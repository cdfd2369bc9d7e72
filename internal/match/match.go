// Package match wires the physics core into a Nakama authoritative match:
// it owns a world.World, steps it on a fixed-timestep accumulator once per
// match loop tick, relays player input into World mutators, and broadcasts
// the current world state to connected clients.
package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/guunterr/thrust/internal/storage"
	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
	"github.com/guunterr/thrust/pkg/world"
)

// OpCode constants for client<->server messages.
const (
	OpCodeWorldState  = 1 // Initial world snapshot for a newly joined player.
	OpCodeWorldUpdate = 2 // Regular world broadcast of current body state.
	OpCodeInputACK    = 4 // Acknowledgment of a processed PlayerInput.
)

// broadcaster is the slice of runtime.MatchDispatcher that broadcasting
// actually needs; any runtime.MatchDispatcher satisfies it, and tests can
// supply a narrow fake instead of the full dispatcher surface.
type broadcaster interface {
	BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error
}

var _ broadcaster = runtime.MatchDispatcher(nil)

// saveEveryNTicks controls how often State.storageMgr persists a world
// snapshot, mirroring the teacher's periodic-save cadence.
const saveEveryNTicks = 100

// GameMatch implements runtime.Match, delegating all physics to a
// world.World owned by the match's State.
type GameMatch struct{}

// State is the authoritative per-match state Nakama threads through every
// callback as the opaque `state interface{}`.
type State struct {
	mu           sync.Mutex
	World        *world.World
	presences    map[string]runtime.Presence
	playerBodies map[string]uint64
	currentTick  int64
	accumulator  float64
	storageMgr   *storage.Manager
}

// PlayerInput is the client-authored message relayed through MatchLoop.
type PlayerInput struct {
	PlayerID  string  `json:"playerId"`
	Action    string  `json:"action"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	VelocityX float64 `json:"velocityX,omitempty"`
	VelocityY float64 `json:"velocityY,omitempty"`
}

// InputACK is returned to the client that sent a PlayerInput.
type InputACK struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// BodySnapshot is the wire shape of one body in a world broadcast.
type BodySnapshot struct {
	ID       uint64          `json:"id"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Rotation float64         `json:"rotation"`
	Colour   material.Colour `json:"colour"`
	Tag      string          `json:"tag,omitempty"`
}

// WorldSnapshot is the broadcast payload for OpCodeWorldState/WorldUpdate.
type WorldSnapshot struct {
	Tick   int64          `json:"tick"`
	Bodies []BodySnapshot `json:"bodies"`
}

const maxSpeed = 300.0 // pixels per second, clamps PlayerInput move actions.

func (m *GameMatch) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	w := world.New()
	w.Gravity = vec2.New(0, 9.8*world.UnitScale)

	mgr := storage.NewManager(logger, nk)
	state := &State{
		World:        w,
		presences:    make(map[string]runtime.Presence),
		playerBodies: make(map[string]uint64),
		storageMgr:   mgr,
	}

	if err := mgr.Restore(ctx, w); err != nil {
		logger.Info("no persisted world state to restore: %v", err)
		floorShape, err := shape.NewRectangle(2000, 40)
		if err != nil {
			logger.Error("failed to build default floor shape: %v", err)
		} else {
			w.AddBody(rigidbody.New(vec2.New(1000, 760), floorShape, material.STATIC))
		}
	}

	tickRate := 30
	label := "thrust-physics"
	return state, tickRate, label
}

func (m *GameMatch) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	return state, true, ""
}

func (m *GameMatch) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s := state.(*State)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range presences {
		s.presences[p.GetUserId()] = p
		if _, exists := s.playerBodies[p.GetUserId()]; !exists {
			s.spawnPlayerLocked(p.GetUserId())
		}
	}
	return s
}

func (m *GameMatch) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s := state.(*State)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range presences {
		delete(s.presences, p.GetUserId())
		if id, ok := s.playerBodies[p.GetUserId()]; ok {
			if err := s.World.RemoveBody(id); err != nil {
				logger.Error("failed to remove departing player's body: %v", err)
			}
			delete(s.playerBodies, p.GetUserId())
		}
	}
	return s
}

func (m *GameMatch) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	s := state.(*State)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range messages {
		var input PlayerInput
		if err := json.Unmarshal(msg.GetData(), &input); err != nil {
			logger.Warn("dropping malformed player input: %v", err)
			continue
		}
		if input.PlayerID == "" {
			input.PlayerID = msg.GetUserId()
		}
		ack := s.applyInputLocked(&input)
		payload, err := json.Marshal(ack)
		if err != nil {
			logger.Error("failed to marshal input ack: %v", err)
			continue
		}
		if presence, ok := s.presences[input.PlayerID]; ok {
			dispatcher.BroadcastMessage(OpCodeInputACK, payload, []runtime.Presence{presence}, nil, true)
		}
	}

	// Fixed-timestep accumulator: the match loop's own tick rate is the
	// outer driver; PHYSICS_DT is the inner, deterministic physics rate.
	s.accumulator += 1.0 / 30.0
	for s.accumulator >= world.PhysicsDT {
		s.World.Step(world.PhysicsDT)
		s.accumulator -= world.PhysicsDT
	}

	s.currentTick = tick
	if tick%saveEveryNTicks == 0 {
		if err := s.storageMgr.Save(ctx, s.World, s.currentTick); err != nil {
			logger.Error("periodic world save failed: %v", err)
		}
	}

	s.broadcastLocked(dispatcher)
	return s
}

func (m *GameMatch) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	s := state.(*State)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageMgr.Save(ctx, s.World, s.currentTick); err != nil {
		logger.Error("final world save failed: %v", err)
	}
	return s
}

func (m *GameMatch) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, data
}

func (s *State) spawnPlayerLocked(playerID string) uint64 {
	shp, _ := shape.NewCircle(20)
	body := rigidbody.New(vec2.New(400, 100), shp, material.BOUNCY_BALL)
	body.Tag = "player:" + playerID
	id := s.World.AddBody(body)
	s.playerBodies[playerID] = id
	return id
}

// applyInputLocked relays a PlayerInput into World mutators, implementing
// the Input contract of spec.md §6 (pick/set_position/set_velocity are
// the sufficient primitives; this is their consumer).
func (s *State) applyInputLocked(in *PlayerInput) InputACK {
	id, ok := s.playerBodies[in.PlayerID]
	if !ok {
		return InputACK{PlayerID: in.PlayerID, Action: in.Action, Approved: false, Reason: "unknown player"}
	}

	switch in.Action {
	case "move":
		v := vec2.New(in.VelocityX, in.VelocityY)
		if speed := v.Length(); speed > maxSpeed && speed > 0 {
			v = v.Scale(maxSpeed / speed)
		}
		if err := s.World.SetVelocity(id, v); err != nil {
			return InputACK{PlayerID: in.PlayerID, Action: in.Action, Approved: false, Reason: err.Error()}
		}
	case "teleport":
		if err := s.World.SetPosition(id, vec2.New(in.X, in.Y)); err != nil {
			return InputACK{PlayerID: in.PlayerID, Action: in.Action, Approved: false, Reason: err.Error()}
		}
		if err := s.World.SetVelocity(id, vec2.Zero); err != nil {
			return InputACK{PlayerID: in.PlayerID, Action: in.Action, Approved: false, Reason: err.Error()}
		}
	default:
		return InputACK{PlayerID: in.PlayerID, Action: in.Action, Approved: false, Reason: "unknown action"}
	}
	return InputACK{PlayerID: in.PlayerID, Action: in.Action, Approved: true}
}

func (s *State) broadcastLocked(dispatcher broadcaster) {
	snap := WorldSnapshot{Tick: s.currentTick}
	s.World.ForEachBody(1, func(id uint64, tr rigidbody.Transform, sh shape.Shape, mat material.Material, vel vec2.Vector2, tag string) {
		snap.Bodies = append(snap.Bodies, BodySnapshot{
			ID:       id,
			X:        tr.Position.X,
			Y:        tr.Position.Y,
			Rotation: tr.Rotation,
			Colour:   mat.Colour,
			Tag:      tag,
		})
	})
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	presences := make([]runtime.Presence, 0, len(s.presences))
	for _, p := range s.presences {
		presences = append(presences, p)
	}
	if len(presences) == 0 {
		return
	}
	dispatcher.BroadcastMessage(OpCodeWorldUpdate, payload, presences, nil, true)
}
