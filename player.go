package main

import (
	"errors"

	"golang.org/x/time/rate"
)

// LifecycleState is a player's single lifecycle state
type LifecycleState int

const (
	StateSpawning LifecycleState = iota
	StateActive
	StateRespawning
	StateSpectating
	StateDisconnected
)

func (s LifecycleState) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateActive:
		return "active"
	case StateRespawning:
		return "respawning"
	case StateSpectating:
		return "spectating"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// ScoreReason selects the reward multiplier for a score grant
type ScoreReason int

const (
	ReasonKill ScoreReason = iota
	ReasonObjective
	ReasonMission
	ReasonAchievement
)

func (r ScoreReason) String() string {
	switch r {
	case ReasonKill:
		return "kill"
	case ReasonObjective:
		return "objective"
	case ReasonMission:
		return "mission"
	default:
		return "achievement"
	}
}

// Reward multiplier per score reason: kill > objective > mission > achievement
var scoreMultipliers = [...]float64{
	ReasonKill:        1.0,
	ReasonObjective:   0.6,
	ReasonMission:     0.4,
	ReasonAchievement: 0.25,
}

const (
	MaxHealth = 100.0
	MaxFuel   = 100.0

	SpawnInvulnTime = 3.0 // seconds of post-spawn invulnerability
	RespawnDelay    = 5.0 // seconds from death to respawn

	FuelDrainRate      = 0.8 // fuel units/s at full throttle
	AfterburnerFuelMul = 3.0

	ArmorDamageReduction = 0.20

	KillPoints         = 100
	KillStreakBonusCap = 50
)

// Reward spam limit: at most one token award per 2s with a small burst
const (
	rewardRate  = 0.5
	rewardBurst = 3
)

// Rejection reasons returned by action attempts
var (
	ErrNotActive   = errors.New("not active")
	ErrCoolingDown = errors.New("cooling down")
	ErrNoAmmo      = errors.New("out of ammo")
	ErrNoMissiles  = errors.New("out of missiles")
	ErrNoFlares    = errors.New("out of countermeasures")
)

// Player owns one aircraft's full mutable state and its lifecycle
type Player struct {
	ID        string
	Name      string
	AccountID int64 // 0 = guest
	Aircraft  AircraftType

	Position   Vec3
	Rotation   Vec3 // Euler: X=pitch, Y=yaw, Z=roll
	Velocity   Vec3
	AngularVel Vec3

	Health   float64
	Fuel     float64
	Ammo     int
	Missiles int
	Flares   int

	PrimaryCD   float64
	SecondaryCD float64
	FlareCD     float64
	AbilityCD   map[string]float64

	State   LifecycleState
	InvulnT float64
	Stalled bool
	FuelOut bool // flameout already reported this tank

	Score      int
	Kills      int
	Deaths     int
	KillStreak int

	Loadout      Loadout
	Achievements map[string]bool
	Missions     map[string]int

	Input      ControlInput
	LastUpdate int64 // unix millis of last accepted move report
	Violations int   // clamped out-of-envelope moves, for monitoring

	rewardLimit *rate.Limiter
	lastSnap    *PlayerSnap // previous emitted state, drives delta masks
}

// NewPlayer creates a player in the Spawning state
func NewPlayer(id, name string, t AircraftType, accountID int64) *Player {
	p := &Player{
		ID:           id,
		Name:         name,
		AccountID:    accountID,
		Aircraft:     t,
		State:        StateSpawning,
		Loadout:      DefaultLoadout(t),
		AbilityCD:    make(map[string]float64),
		Achievements: make(map[string]bool),
		Missions:     make(map[string]int),
		rewardLimit:  rate.NewLimiter(rate.Limit(rewardRate), rewardBurst),
	}
	p.resetResources()
	return p
}

// Profile returns the performance profile for this player's airframe
func (p *Player) Profile() AircraftProfile {
	return GetAircraftProfile(p.Aircraft)
}

func (p *Player) hasUpgrade(id string) bool {
	return p.Loadout.Upgrades[id]
}

// thrustMul is consumed by the flight integrator
func (p *Player) thrustMul() float64 {
	if p.hasUpgrade(UpgradeEngineTune) {
		return 1.08
	}
	return 1
}

func (p *Player) fuelDrainMul() float64 {
	if p.hasUpgrade(UpgradeDropTank) {
		return 0.75
	}
	return 1
}

func (p *Player) resetResources() {
	prof := p.Profile()
	p.Health = MaxHealth
	p.Fuel = MaxFuel
	p.Ammo = prof.MaxAmmo
	p.Missiles = prof.MaxMissiles
	p.Flares = prof.MaxFlares
	if p.hasUpgrade(UpgradeFlarePack) {
		p.Flares += 2
	}
	p.PrimaryCD = 0
	p.SecondaryCD = 0
	p.FlareCD = 0
	for k := range p.AbilityCD {
		delete(p.AbilityCD, k)
	}
	p.FuelOut = false
}

// Spawn places the player at a position with resources reset, entering
// Spawning with a short invulnerability window. Active follows on the
// next update.
func (p *Player) Spawn(pos Vec3) {
	p.Position = pos
	p.Velocity = Vec3{}
	p.AngularVel = Vec3{}
	p.Rotation = Vec3{Y: randFloat() * 6.28}
	p.resetResources()
	p.State = StateSpawning
	p.InvulnT = SpawnInvulnTime
	p.Stalled = false
}

// Invulnerable reports whether damage is currently ignored
func (p *Player) Invulnerable() bool {
	return p.InvulnT > 0
}

// Update ticks cooldowns, the invulnerability window, fuel drain and the
// Spawning→Active transition. Flight integration happens separately in
// StepFlight. Returns outcome events for the dispatcher.
func (p *Player) Update(dt float64) []GameEvent {
	var events []GameEvent

	if p.State == StateSpawning {
		p.State = StateActive
	}

	if p.InvulnT > 0 {
		p.InvulnT -= dt
		if p.InvulnT < 0 {
			p.InvulnT = 0
		}
	}

	tickDown := func(cd *float64) {
		if *cd > 0 {
			*cd -= dt
			if *cd < 0 {
				*cd = 0
			}
		}
	}
	tickDown(&p.PrimaryCD)
	tickDown(&p.SecondaryCD)
	tickDown(&p.FlareCD)
	for k, cd := range p.AbilityCD {
		cd -= dt
		if cd <= 0 {
			delete(p.AbilityCD, k)
		} else {
			p.AbilityCD[k] = cd
		}
	}

	if p.State == StateActive {
		drain := FuelDrainRate * Clamp(p.Input.Throttle, 0, 1) * dt * p.fuelDrainMul()
		if p.Input.Afterburner && p.Profile().HasAfterburner {
			drain *= AfterburnerFuelMul
		}
		if drain > 0 {
			p.Fuel -= drain
			if p.Fuel <= 0 {
				p.Fuel = 0
				// Engine stall: throttle forced to zero, event fires once
				if !p.FuelOut {
					p.FuelOut = true
					events = append(events, GameEvent{Kind: EventFuelEmpty, PlayerID: p.ID})
				}
			}
		}
		if p.Fuel <= 0 {
			p.Input.Throttle = 0
			p.Input.Afterburner = false
		}
	}

	return events
}

// ApplyDamage reduces health by amount from the given source. No-op while
// invulnerable or already dead. Crossing from >0 to 0 triggers exactly one
// death transition into Respawning. Returns true on that crossing.
func (p *Player) ApplyDamage(amount float64, attackerID string) bool {
	if p.State != StateActive {
		return false
	}
	if p.Invulnerable() || p.Health <= 0 {
		return false
	}
	if amount <= 0 {
		return false
	}
	if p.hasUpgrade(UpgradeArmor) {
		amount *= 1 - ArmorDamageReduction
	}
	p.Health -= amount
	if p.Health <= 0 {
		p.Health = 0
		p.State = StateRespawning
		p.Deaths++
		p.KillStreak = 0
		return true
	}
	return false
}

// FirePrimary consumes ammo and starts the weapon's cooldown
func (p *Player) FirePrimary(w WeaponDef) error {
	if p.State != StateActive {
		return ErrNotActive
	}
	if p.PrimaryCD > 0 {
		return ErrCoolingDown
	}
	if p.Ammo < w.AmmoCost {
		return ErrNoAmmo
	}
	p.Ammo -= w.AmmoCost
	p.PrimaryCD = w.Cooldown
	return nil
}

// FireSecondary consumes one missile-rack slot and starts the cooldown
func (p *Player) FireSecondary(w WeaponDef) error {
	if p.State != StateActive {
		return ErrNotActive
	}
	if p.SecondaryCD > 0 {
		return ErrCoolingDown
	}
	if p.Missiles < 1 {
		return ErrNoMissiles
	}
	p.Missiles--
	p.SecondaryCD = w.Cooldown
	return nil
}

// UseCountermeasure pops a flare
func (p *Player) UseCountermeasure() error {
	if p.State != StateActive {
		return ErrNotActive
	}
	if p.FlareCD > 0 {
		return ErrCoolingDown
	}
	if p.Flares < 1 {
		return ErrNoFlares
	}
	p.Flares--
	p.FlareCD = flareCooldown
	return nil
}

const flareCooldown = 2.0

// AddScore grants points and computes the reason-multiplied token reward.
// The score always lands; the reward is rate-limited per player so reward
// spam cannot drain the token faucet. Returns the reward amount (0 when
// suppressed).
func (p *Player) AddScore(points int, reason ScoreReason) int {
	if points <= 0 {
		return 0
	}
	p.Score += points
	reward := int(float64(points) * scoreMultipliers[reason])
	if reward <= 0 {
		return 0
	}
	if !p.rewardLimit.Allow() {
		return 0
	}
	return reward
}

// RegisterKill credits this player with a victim. The bonus grows with the
// victim's standing (score and running streak), capped so farming one whale
// doesn't break the economy.
func (p *Player) RegisterKill(victim *Player) int {
	p.Kills++
	p.KillStreak++
	bonus := victim.Score/10 + victim.KillStreak*5
	if bonus > KillStreakBonusCap {
		bonus = KillStreakBonusCap
	}
	return bonus
}

// SetSpectating toggles the Active↔Spectating mode switch. It is not a
// combat transition and is refused in any other state.
func (p *Player) SetSpectating(on bool) bool {
	if on && p.State == StateActive {
		p.State = StateSpectating
		return true
	}
	if !on && p.State == StateSpectating {
		p.State = StateActive
		return true
	}
	return false
}
