package storage

import (
	"context"
	"testing"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/guunterr/thrust/internal/testlogger"
	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
	"github.com/guunterr/thrust/pkg/world"
)

// fakeClient is a minimal in-memory storageClient, narrow enough that a
// test never has to implement the full runtime.NakamaModule surface.
type fakeClient struct {
	objects map[string]string
	failing bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string]string)}
}

func (f *fakeClient) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	for _, w := range writes {
		f.objects[w.Collection+"/"+w.Key] = w.Value
	}
	return nil, nil
}

func (f *fakeClient) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	var out []*api.StorageObject
	for _, r := range reads {
		if v, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, &api.StorageObject{Collection: r.Collection, Key: r.Key, Value: v})
		}
	}
	return out, nil
}

func TestSaveThenRestoreRoundTrips(t *testing.T) {
	fc := newFakeClient()
	mgr := &Manager{logger: testlogger.Logger{}, nk: fc}

	w1 := world.New()
	s, _ := shape.NewCircle(10)
	b := rigidbody.New(vec2.New(5, 7), s, material.WOOD)
	b.Tag = "debug-ball"
	b.Velocity = vec2.New(3, -4)
	w1.AddBody(b)

	if err := mgr.Save(context.Background(), w1, 42); err != nil {
		t.Fatalf("Save: %v", err)
	}

	w2 := world.New()
	if err := mgr.Restore(context.Background(), w2); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if w2.BodyCount() != 1 {
		t.Fatalf("BodyCount after restore: got %d want 1", w2.BodyCount())
	}

	var found bool
	w2.ForEachBody(1, func(id uint64, tr rigidbody.Transform, sh shape.Shape, mat material.Material, vel vec2.Vector2, tag string) {
		found = true
		if tr.Position != (vec2.Vector2{5, 7}) {
			t.Errorf("restored position: got %v want (5,7)", tr.Position)
		}
		if vel != (vec2.Vector2{3, -4}) {
			t.Errorf("restored velocity: got %v want (3,-4)", vel)
		}
		if tag != "debug-ball" {
			t.Errorf("restored tag: got %v want debug-ball", tag)
		}
		if sh.Kind() != shape.KindCircle || sh.Radius() != 10 {
			t.Errorf("restored shape: kind=%v radius=%v", sh.Kind(), sh.Radius())
		}
		if mat.Density != material.WOOD.Density || mat.Restitution != material.WOOD.Restitution {
			t.Errorf("restored material: got %+v want density=%v restitution=%v", mat, material.WOOD.Density, material.WOOD.Restitution)
		}
	})
	if !found {
		t.Fatal("restored world has no body")
	}
}

func TestRestoreWithNoSnapshotFails(t *testing.T) {
	fc := newFakeClient()
	mgr := &Manager{logger: testlogger.Logger{}, nk: fc}

	if err := mgr.Restore(context.Background(), world.New()); err == nil {
		t.Error("expected an error when no snapshot has ever been saved")
	}
}

func TestRestoreSkipsBodyWithInvalidShape(t *testing.T) {
	fc := newFakeClient()
	mgr := &Manager{logger: testlogger.Logger{}, nk: fc}
	fc.objects[collectionWorldState+"/"+keyGlobalWorldState] = `{"tick":1,"bodies":[{"shapeKind":1,"vertices":[{"X":0,"Y":0}],"density":1,"restitution":0,"colour":{"R":0,"G":0,"B":0,"A":255},"position":{"X":0,"Y":0}}]}`

	w := world.New()
	if err := mgr.Restore(context.Background(), w); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if w.BodyCount() != 0 {
		t.Errorf("BodyCount: got %d want 0, invalid-shape body should be skipped", w.BodyCount())
	}
}
