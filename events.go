package main

// Entity state machines never talk to the network or the reward service
// directly. Each update call returns typed outcome events; the session's
// game loop is the single dispatcher that routes them to clients, the
// reward dispatcher, and the stats recorder.

// EventKind enumerates outcome events produced during a tick
type EventKind int

const (
	EventPlayerHit EventKind = iota
	EventPlayerDefeated
	EventPlayerRespawned
	EventProjectileSpawned
	EventProjectileRemoved
	EventFuelEmpty
	EventScore
	EventAchievementUnlocked
	EventMissionComplete
)

// GameEvent is one typed outcome of a state machine update
type GameEvent struct {
	Kind         EventKind
	PlayerID     string // acting/affected player
	OtherID      string // attacker, killer or victim depending on Kind
	ProjectileID string
	Amount       float64 // damage, score points or reward tokens
	Reason       string  // removal reason, achievement id, score reason
	Position     Vec3
}
