package main

import "math"

// CollisionType classifies what an aircraft ran into
type CollisionType int

const (
	CollisionTerrain CollisionType = iota
	CollisionBoundary
	CollisionPlayer
	CollisionProjectile
)

func (t CollisionType) String() string {
	switch t {
	case CollisionTerrain:
		return "terrain"
	case CollisionBoundary:
		return "boundary"
	case CollisionPlayer:
		return "player"
	default:
		return "projectile"
	}
}

// Collision is one detected contact. Transient: produced and consumed
// within a single tick, never persisted.
type Collision struct {
	Type     CollisionType
	Position Vec3
	Normal   Vec3
	Severity float64 // normalized [0,1] intensity

	// Type-specific payload
	OtherID        string
	ProjectileID   string
	ProjectileKind ProjectileKind
	RelativeSpeed  float64
}

const (
	boundarySeverity     = 0.4
	projectileSeverity   = 0.8
	ramSeverityDivisor   = 200.0 // relative m/s that maps to severity 1
	terrainSeverityDepth = 40.0  // penetration metres that maps to severity 1
)

// DetectCollisions tests one aircraft against terrain, map boundaries,
// the other aircraft and every live projectile. Order is detection order
// only; each collision is resolved independently. Cost is O(players +
// projectiles) per aircraft, O(n²) per tick for the ship-ship pass — fine
// at session sizes up to a couple dozen, the known scalability limit.
func DetectCollisions(p *Player, w *World, players map[string]*Player, projectiles map[string]*Projectile) []Collision {
	var out []Collision
	prof := p.Profile()

	// Terrain: at or below the procedural ground level
	ground := w.TerrainHeight(p.Position.X, p.Position.Z)
	if p.Position.Y <= ground {
		depth := ground - p.Position.Y
		sev := 1.0
		if p.Position.Y > 0 {
			sev = Clamp(0.5+depth/terrainSeverityDepth, 0.5, 1)
		}
		out = append(out, Collision{
			Type:     CollisionTerrain,
			Position: Vec3{X: p.Position.X, Y: ground, Z: p.Position.Z},
			Normal:   Vec3{Y: 1},
			Severity: sev,
		})
	}

	// Boundary: axis-aligned against map min/max per axis
	out = appendBoundary(out, p.Position, w.Bounds)

	// Player-player: bounding box overlap on half extents per axis
	for _, o := range players {
		if o.ID == p.ID || o.State != StateActive {
			continue
		}
		oProf := o.Profile()
		d := o.Position.Sub(p.Position)
		if math.Abs(d.X) > prof.HalfExtents.X+oProf.HalfExtents.X ||
			math.Abs(d.Y) > prof.HalfExtents.Y+oProf.HalfExtents.Y ||
			math.Abs(d.Z) > prof.HalfExtents.Z+oProf.HalfExtents.Z {
			continue
		}
		relSpeed := p.Velocity.Sub(o.Velocity).Len()
		normal := p.Position.Sub(o.Position).Normalize()
		if normal.LenSq() == 0 {
			normal = Vec3{Y: 1}
		}
		out = append(out, Collision{
			Type:          CollisionPlayer,
			Position:      p.Position.Mid(o.Position),
			Normal:        normal,
			Severity:      math.Min(1, relSpeed/ramSeverityDivisor),
			OtherID:       o.ID,
			RelativeSpeed: relSpeed,
		})
	}

	// Projectiles: sphere test, owner's own shots skipped
	for _, pr := range projectiles {
		if !pr.Alive || pr.OwnerID == p.ID {
			continue
		}
		def := GetProjectileDef(pr.Kind)
		if p.Position.Dist(pr.Position) > prof.CollisionRadius+def.Radius {
			continue
		}
		out = append(out, Collision{
			Type:           CollisionProjectile,
			Position:       pr.Position,
			Normal:         pr.Direction.Scale(-1),
			Severity:       projectileSeverity,
			OtherID:        pr.OwnerID,
			ProjectileID:   pr.ID,
			ProjectileKind: pr.Kind,
		})
	}

	return out
}

// appendBoundary emits one collision per violated axis, with the clamped
// contact point and the outward normal of that face.
func appendBoundary(out []Collision, pos Vec3, b Bounds) []Collision {
	type axis struct {
		val, min, max float64
		minN, maxN    Vec3
	}
	axes := [3]axis{
		{pos.X, b.Min.X, b.Max.X, Vec3{X: -1}, Vec3{X: 1}},
		{pos.Y, b.Min.Y, b.Max.Y, Vec3{Y: -1}, Vec3{Y: 1}},
		{pos.Z, b.Min.Z, b.Max.Z, Vec3{Z: -1}, Vec3{Z: 1}},
	}
	for _, a := range axes {
		var n Vec3
		switch {
		case a.val < a.min:
			n = a.minN
		case a.val > a.max:
			n = a.maxN
		default:
			continue
		}
		contact := pos
		contact.X = Clamp(contact.X, b.Min.X, b.Max.X)
		contact.Y = Clamp(contact.Y, b.Min.Y, b.Max.Y)
		contact.Z = Clamp(contact.Z, b.Min.Z, b.Max.Z)
		out = append(out, Collision{
			Type:     CollisionBoundary,
			Position: contact,
			Normal:   n,
			Severity: boundarySeverity,
		})
	}
	return out
}
