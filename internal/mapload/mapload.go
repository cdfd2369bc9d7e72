// Package mapload parses Tiled JSON maps into world bodies: collision tile
// runs and collider objects become static rigidbody.Body values, ready for
// world.World.AddBody, and marked spawn points become plain positions.
package mapload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
)

// ---- Tiled JSON shape ----

type tiledMap struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	TileWidth   int             `json:"tilewidth"`
	TileHeight  int             `json:"tileheight"`
	Layers      []tiledLayer    `json:"layers"`
	Properties  []tiledProperty `json:"properties,omitempty"`
}

type tiledLayer struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Data       []uint32        `json:"data,omitempty"`
	Objects    []tiledObject   `json:"objects,omitempty"`
	Properties []tiledProperty `json:"properties,omitempty"`
	Visible    bool            `json:"visible"`
}

type tiledObject struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Visible    bool            `json:"visible"`
	Ellipse    bool            `json:"ellipse,omitempty"`
	Polygon    []tiledPoint    `json:"polygon,omitempty"`
	Properties []tiledProperty `json:"properties,omitempty"`
}

type tiledPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type tiledProperty struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

const (
	hFlip uint32 = 0x80000000
	vFlip uint32 = 0x40000000
	dFlip uint32 = 0x20000000
)

func sanitizeGID(gid uint32) uint32 {
	return gid &^ (hFlip | vFlip | dFlip)
}

// ---- Loader ----

// Loader reads Tiled JSON maps from a directory on disk.
type Loader struct {
	logger runtime.Logger
	mapDir string
}

func NewLoader(logger runtime.Logger, mapDir string) *Loader {
	return &Loader{logger: logger, mapDir: mapDir}
}

// LoadedMap is a level ready to be dropped into a world.World: static
// collider bodies plus the map's spawn points.
type LoadedMap struct {
	Width, Height         int
	TileWidth, TileHeight int
	Colliders             []*rigidbody.Body
	SpawnPoints           []vec2.Vector2
	Properties            map[string]interface{}
}

// Load reads and parses filename (relative to the loader's mapDir) into a
// LoadedMap.
func (l *Loader) Load(filename string) (*LoadedMap, error) {
	path := filepath.Join(l.mapDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapload: read %s: %w", path, err)
	}

	var tm tiledMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("mapload: parse %s: %w", path, err)
	}

	lm := &LoadedMap{
		Width:      tm.Width,
		Height:     tm.Height,
		TileWidth:  tm.TileWidth,
		TileHeight: tm.TileHeight,
		Properties: map[string]interface{}{},
	}
	for _, p := range tm.Properties {
		lm.Properties[p.Name] = p.Value
	}

	for i := range tm.Layers {
		layer := &tm.Layers[i]
		if !layer.Visible {
			continue
		}
		switch layer.Type {
		case "tilelayer":
			l.processTileLayer(&tm, layer, lm)
		case "objectgroup":
			l.processObjectLayer(layer, lm)
		default:
			l.logger.Debug("mapload: skipping unsupported layer type %s (%s)", layer.Type, layer.Name)
		}
	}

	l.logger.Info("mapload: loaded %s: colliders=%d spawnPoints=%d", filename, len(lm.Colliders), len(lm.SpawnPoints))
	return lm, nil
}

// isCollisionLayer matches the teacher's name-or-property heuristic: a
// layer is treated as solid geometry if its name contains "coll" or it
// carries a boolean "collision" property set to true.
func (l *Loader) isCollisionLayer(name string, props []tiledProperty) bool {
	if strings.Contains(strings.ToLower(name), "coll") {
		return true
	}
	for _, p := range props {
		if strings.EqualFold(p.Name, "collision") {
			if b, ok := p.Value.(bool); ok && b {
				return true
			}
		}
	}
	return false
}

// processTileLayer merges horizontal runs of occupied collision cells into
// one static rectangle body per run, rather than one per tile, to keep the
// body count proportional to level geometry, not tile count.
func (l *Loader) processTileLayer(tm *tiledMap, layer *tiledLayer, lm *LoadedMap) {
	if !l.isCollisionLayer(layer.Name, layer.Properties) {
		l.logger.Debug("mapload: skipping non-collision tile layer %s", layer.Name)
		return
	}

	w, h := layer.Width, layer.Height
	occ := make([]bool, w*h)
	for i, gid := range layer.Data {
		if sanitizeGID(gid) != 0 {
			occ[i] = true
		}
	}

	tw := float64(tm.TileWidth)
	th := float64(tm.TileHeight)

	for y := 0; y < h; y++ {
		x := 0
		for x < w {
			idx := y*w + x
			if !occ[idx] {
				x++
				continue
			}
			x0 := x
			for x < w && occ[y*w+x] {
				x++
			}
			segW := float64(x - x0)
			cx := float64(x0)*tw + segW*tw/2
			cy := float64(y)*th + th/2

			s, err := shape.NewRectangle(segW*tw, th)
			if err != nil {
				l.logger.Warn("mapload: skipping degenerate tile run on layer %s: %v", layer.Name, err)
				continue
			}
			lm.Colliders = append(lm.Colliders, rigidbody.New(vec2.New(cx, cy), s, material.STATIC))
		}
	}
}

// processObjectLayer turns rectangle/polygon/ellipse collider objects into
// static bodies and records any object tagged as a spawn point.
func (l *Loader) processObjectLayer(layer *tiledLayer, lm *LoadedMap) {
	isCollision := l.isCollisionLayer(layer.Name, layer.Properties)

	for i := range layer.Objects {
		obj := &layer.Objects[i]
		if !obj.Visible {
			continue
		}

		centerX := obj.X + obj.Width/2
		centerY := obj.Y + obj.Height/2

		if isCollision || strings.EqualFold(obj.Type, "collider") {
			switch {
			case len(obj.Polygon) > 2:
				verts := make([]vec2.Vector2, len(obj.Polygon))
				for j, p := range obj.Polygon {
					verts[j] = vec2.New(p.X, p.Y)
				}
				s, err := shape.NewPolygon(verts)
				if err != nil {
					l.logger.Warn("mapload: skipping invalid polygon object %s (id=%d): %v", obj.Name, obj.ID, err)
					continue
				}
				lm.Colliders = append(lm.Colliders, rigidbody.New(vec2.New(obj.X, obj.Y), s, material.STATIC))
			case obj.Ellipse && obj.Width > 0 && obj.Height > 0:
				avgRadius := (obj.Width/2 + obj.Height/2) / 2
				s, err := shape.NewCircle(avgRadius)
				if err != nil {
					l.logger.Warn("mapload: skipping invalid ellipse object %s (id=%d): %v", obj.Name, obj.ID, err)
					continue
				}
				lm.Colliders = append(lm.Colliders, rigidbody.New(vec2.New(centerX, centerY), s, material.STATIC))
			case obj.Width > 0 && obj.Height > 0:
				s, err := shape.NewRectangle(obj.Width, obj.Height)
				if err != nil {
					l.logger.Warn("mapload: skipping invalid rectangle object %s (id=%d): %v", obj.Name, obj.ID, err)
					continue
				}
				lm.Colliders = append(lm.Colliders, rigidbody.New(vec2.New(centerX, centerY), s, material.STATIC))
			default:
				l.logger.Warn("mapload: skipping unsupported collider object %s (id=%d): no size", obj.Name, obj.ID)
			}
			continue
		}

		if strings.EqualFold(obj.Type, "spawn_point") || strings.Contains(strings.ToLower(obj.Name), "spawn") {
			lm.SpawnPoints = append(lm.SpawnPoints, vec2.New(centerX, centerY))
		}
	}
}

// SpawnPoint returns the spawn point at index, falling back to the first
// spawn point if index is out of range (or to (100, 100) when the map has
// no spawn points), the same
// deterministic fallback the teacher's MapLoader uses.
func (lm *LoadedMap) SpawnPoint(index int) vec2.Vector2 {
	if len(lm.SpawnPoints) == 0 {
		return vec2.New(100, 100)
	}
	if index < 0 || index >= len(lm.SpawnPoints) {
		return lm.SpawnPoints[0]
	}
	return lm.SpawnPoints[index]
}

// Bounds derives the world's playable rectangle from map dimensions, for
// assignment to world.World.Bounds.
func (lm *LoadedMap) Bounds() shape.AABB {
	return shape.AABB{
		Min: vec2.New(0, 0),
		Max: vec2.New(float64(lm.Width*lm.TileWidth), float64(lm.Height*lm.TileHeight)),
	}
}
