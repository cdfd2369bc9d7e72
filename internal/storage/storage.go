// Package storage persists and restores world snapshots through Nakama's
// storage engine, mirroring the teacher's DatabaseManager but narrowed to
// the physics world: the whole world is saved as one JSON snapshot blob.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
	"github.com/guunterr/thrust/pkg/world"
)

const (
	collectionWorldState = "world_state"
	keyGlobalWorldState  = "global"
)

// storageClient is the slice of runtime.NakamaModule that persistence
// actually needs; any runtime.NakamaModule satisfies it, and tests can
// supply a narrow fake instead of the full module surface.
type storageClient interface {
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
}

var _ storageClient = runtime.NakamaModule(nil)

// Manager handles persistence for a single match's world.
type Manager struct {
	logger runtime.Logger
	nk     storageClient
}

func NewManager(logger runtime.Logger, nk runtime.NakamaModule) *Manager {
	return &Manager{logger: logger, nk: nk}
}

// persistedBody is the wire shape of one body inside a persisted snapshot.
// Shapes are flattened to a discriminated union (kind + either radius or
// vertices) since shape.Shape itself carries no JSON tags.
type persistedBody struct {
	ShapeKind   shape.Kind      `json:"shapeKind"`
	Radius      float64         `json:"radius,omitempty"`
	Vertices    []vec2.Vector2  `json:"vertices,omitempty"`
	Density     float64         `json:"density"`
	Restitution float64         `json:"restitution"`
	Colour      material.Colour `json:"colour"`
	Position    vec2.Vector2    `json:"position"`
	Velocity    vec2.Vector2    `json:"velocity,omitempty"`
	Tag         string          `json:"tag,omitempty"`
}

type persistedWorld struct {
	Tick   int64           `json:"tick"`
	Bodies []persistedBody `json:"bodies"`
}

// Save writes a full snapshot of w to Nakama's storage engine under a
// single global key, matching the teacher's single-document world-state
// model (PersistedWorldState).
func (m *Manager) Save(ctx context.Context, w *world.World, tick int64) error {
	snap := persistedWorld{Tick: tick}
	w.ForEachBody(1, func(id uint64, tr rigidbody.Transform, s shape.Shape, mat material.Material, vel vec2.Vector2, tag string) {
		pb := persistedBody{
			ShapeKind:   s.Kind(),
			Density:     mat.Density,
			Restitution: mat.Restitution,
			Colour:      mat.Colour,
			Position:    tr.Position,
			Velocity:    vel,
			Tag:         tag,
		}
		if s.Kind() == shape.KindCircle {
			pb.Radius = s.Radius()
		} else {
			pb.Vertices = s.Vertices()
		}
		snap.Bodies = append(snap.Bodies, pb)
	})

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: marshal world snapshot: %w", err)
	}

	_, err = m.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      collectionWorldState,
		Key:             keyGlobalWorldState,
		Value:           string(data),
		PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return fmt.Errorf("storage: write world snapshot: %w", err)
	}
	return nil
}

// Restore repopulates an empty world from the last persisted snapshot. It
// returns an error, and adds nothing, when no snapshot has been saved yet.
func (m *Manager) Restore(ctx context.Context, w *world.World) error {
	objs, err := m.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: collectionWorldState,
		Key:        keyGlobalWorldState,
	}})
	if err != nil {
		return fmt.Errorf("storage: read world snapshot: %w", err)
	}
	if len(objs) == 0 {
		return fmt.Errorf("storage: no persisted world snapshot")
	}

	var snap persistedWorld
	if err := json.Unmarshal([]byte(objs[0].Value), &snap); err != nil {
		return fmt.Errorf("storage: unmarshal world snapshot: %w", err)
	}

	for _, pb := range snap.Bodies {
		var s shape.Shape
		var shapeErr error
		if pb.ShapeKind == shape.KindCircle {
			s, shapeErr = shape.NewCircle(pb.Radius)
		} else {
			s, shapeErr = shape.NewPolygon(pb.Vertices)
		}
		if shapeErr != nil {
			m.logger.Warn("skipping persisted body with invalid shape: %v", shapeErr)
			continue
		}
		mat := material.Material{Density: pb.Density, Restitution: pb.Restitution, Colour: pb.Colour}
		body := rigidbody.New(pb.Position, s, mat)
		body.Velocity = pb.Velocity
		body.Tag = pb.Tag
		w.AddBody(body)
	}
	return nil
}
