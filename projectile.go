package main

// ProjectileKind distinguishes flight and collision behaviour
type ProjectileKind int

const (
	ProjBullet  ProjectileKind = 0
	ProjMissile ProjectileKind = 1
	ProjRocket  ProjectileKind = 2
	ProjBomb    ProjectileKind = 3
)

func (k ProjectileKind) String() string {
	switch k {
	case ProjMissile:
		return "missile"
	case ProjRocket:
		return "rocket"
	case ProjBomb:
		return "bomb"
	default:
		return "bullet"
	}
}

// ProjectileDef holds the per-kind tuning
type ProjectileDef struct {
	Speed       float64 // m/s
	Lifetime    float64 // seconds
	Damage      float64
	BlastRadius float64
	Radius      float64 // collision radius; missiles are deliberately fat
	TurnRate    float64 // homing blend fraction per second (missiles only)
}

var projectileDefs = [4]ProjectileDef{
	ProjBullet:  {Speed: 900, Lifetime: 1.5, Damage: 8, BlastRadius: 0, Radius: 0.5, TurnRate: 0},
	ProjMissile: {Speed: 350, Lifetime: 8, Damage: 45, BlastRadius: 15, Radius: 2.5, TurnRate: 2.5},
	ProjRocket:  {Speed: 450, Lifetime: 4, Damage: 30, BlastRadius: 8, Radius: 1.2, TurnRate: 0},
	ProjBomb:    {Speed: 130, Lifetime: 12, Damage: 80, BlastRadius: 30, Radius: 2, TurnRate: 0},
}

// GetProjectileDef returns the tuning for a projectile kind
func GetProjectileDef(k ProjectileKind) ProjectileDef {
	if k < 0 || int(k) >= len(projectileDefs) {
		return projectileDefs[ProjBullet]
	}
	return projectileDefs[k]
}

const projectileSpawnOffset = 12.0 // metres ahead of the nose

// bombDropRate is how fast a bomb's direction pulls toward straight down
const bombDropRate = 1.2

// Projectile is one in-flight munition. Direction is kept unit length.
type Projectile struct {
	ID        string
	OwnerID   string
	TargetID  string // homing target, missiles only
	Kind      ProjectileKind
	Position  Vec3
	Direction Vec3
	Speed     float64
	Damage    float64
	Age       float64
	Alive     bool
	Gone      string // removal reason once !Alive: hit | expired | bounds
}

// NewProjectile spawns a munition ahead of the owner's nose, along it
func NewProjectile(owner *Player, kind ProjectileKind, targetID string) *Projectile {
	def := GetProjectileDef(kind)
	dir := forwardVector(owner.Rotation)
	return &Projectile{
		ID:        GenerateID(3),
		OwnerID:   owner.ID,
		TargetID:  targetID,
		Kind:      kind,
		Position:  owner.Position.Add(dir.Scale(projectileSpawnOffset)),
		Direction: dir,
		Speed:     def.Speed,
		Damage:    def.Damage,
		Alive:     true,
	}
}

// Update advances the projectile one tick. Bullets and rockets fly
// straight; missiles blend their heading toward the target by a bounded
// per-tick fraction (never an instant snap); bombs fall off toward the
// ground. Expiry by lifetime and map boundary happens here, before the
// collision pass sees the new position.
func (pr *Projectile) Update(dt float64, players map[string]*Player, w *World) {
	if !pr.Alive {
		return
	}
	def := GetProjectileDef(pr.Kind)

	pr.Age += dt
	if pr.Age > def.Lifetime {
		pr.Alive = false
		pr.Gone = "expired"
		return
	}

	switch pr.Kind {
	case ProjMissile:
		if t, ok := players[pr.TargetID]; ok && t.State == StateActive {
			toTarget := t.Position.Sub(pr.Position).Normalize()
			if toTarget.LenSq() > 0 {
				blend := Clamp(def.TurnRate*dt, 0, 1)
				pr.Direction = pr.Direction.Scale(1 - blend).Add(toTarget.Scale(blend)).Normalize()
			}
		}
	case ProjBomb:
		blend := Clamp(bombDropRate*dt, 0, 1)
		pr.Direction = pr.Direction.Scale(1 - blend).Add(Vec3{Y: -1}.Scale(blend)).Normalize()
	}

	pr.Position = pr.Position.Add(pr.Direction.Scale(pr.Speed * dt))

	if !w.Contains(pr.Position) {
		pr.Alive = false
		pr.Gone = "bounds"
	}
}

// ToSpawnMsg converts to the protocol announcement
func (pr *Projectile) ToSpawnMsg() ProjSpawnMsg {
	return ProjSpawnMsg{
		ID:     pr.ID,
		Owner:  pr.OwnerID,
		Kind:   int(pr.Kind),
		Pos:    pr.Position,
		Dir:    pr.Direction,
		Speed:  pr.Speed,
		Target: pr.TargetID,
	}
}
