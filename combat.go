package main

// Damage scales per collision class. Severity is the [0,1] intensity
// computed by the detector.
const (
	terrainDamageScale  = 25.0
	boundaryDamageScale = 10.0
	ramDamageScale      = 40.0

	splashDamageFactor = 0.5  // blast splash relative to direct damage
	claimTolerance     = 40.0 // metres between a claimed hit and our projectile
)

// resolveCollisions turns one aircraft's detected collisions into state
// changes and outcome events. Each collision is resolved independently.
// Must be called with the game mutex held.
func (g *Game) resolveCollisions(p *Player, cols []Collision) []GameEvent {
	var events []GameEvent
	for _, c := range cols {
		switch c.Type {
		case CollisionTerrain:
			metricCollisions.WithLabelValues("terrain").Inc()
			if p.Position.Y < c.Position.Y {
				p.Position.Y = c.Position.Y
			}
			if p.Velocity.Y < 0 {
				p.Velocity.Y = 0
			}
			events = append(events, g.applyHit(p, terrainDamageScale*c.Severity, "")...)

		case CollisionBoundary:
			metricCollisions.WithLabelValues("boundary").Inc()
			p.Position = g.world.ClampToBounds(p.Position)
			// Cancel the velocity component pushing through the wall
			if out := p.Velocity.Dot(c.Normal); out > 0 {
				p.Velocity = p.Velocity.Sub(c.Normal.Scale(out))
			}
			events = append(events, g.applyHit(p, boundaryDamageScale*c.Severity, "")...)

		case CollisionPlayer:
			metricCollisions.WithLabelValues("player").Inc()
			// Separate overlapping airframes so they don't grind every tick
			p.Position = p.Position.Add(c.Normal.Scale(2))
			events = append(events, g.applyHit(p, ramDamageScale*c.Severity, c.OtherID)...)

		case CollisionProjectile:
			pr, ok := g.projectiles[c.ProjectileID]
			if !ok {
				continue // consumed earlier this tick
			}
			metricCollisions.WithLabelValues("projectile").Inc()
			events = append(events, g.resolveProjectileHit(p, pr)...)
		}
	}
	return events
}

// applyHit applies damage and, on a death crossing, runs the full kill
// bookkeeping: killer credit, streak bonus, streak achievements.
func (g *Game) applyHit(victim *Player, amount float64, attackerID string) []GameEvent {
	if amount <= 0 {
		return nil
	}
	if victim.State != StateActive || victim.Invulnerable() {
		return nil
	}

	died := victim.ApplyDamage(amount, attackerID)
	events := []GameEvent{{
		Kind:     EventPlayerHit,
		PlayerID: victim.ID,
		OtherID:  attackerID,
		Amount:   amount,
		Position: victim.Position,
	}}
	if !died {
		return events
	}

	events = append(events, GameEvent{
		Kind:     EventPlayerDefeated,
		PlayerID: victim.ID,
		OtherID:  attackerID,
		Position: victim.Position,
	})

	killer, ok := g.players[attackerID]
	if !ok || killer.ID == victim.ID {
		return events
	}

	bonus := killer.RegisterKill(victim)
	if reward := killer.AddScore(KillPoints+bonus, ReasonKill); reward > 0 {
		events = append(events, GameEvent{
			Kind:     EventScore,
			PlayerID: killer.ID,
			Amount:   float64(reward),
			Reason:   ReasonKill.String(),
		})
	}
	for _, id := range StreakAchievements(killer.KillStreak) {
		events = append(events, g.grantAchievement(killer, id)...)
	}
	return events
}

// resolveProjectileHit consumes a projectile against a victim, including
// blast splash on anyone else inside the blast radius.
func (g *Game) resolveProjectileHit(victim *Player, pr *Projectile) []GameEvent {
	pr.Alive = false
	pr.Gone = "hit"
	delete(g.projectiles, pr.ID)

	events := []GameEvent{{
		Kind:         EventProjectileRemoved,
		ProjectileID: pr.ID,
		Reason:       "hit",
		Position:     pr.Position,
	}}
	events = append(events, g.applyHit(victim, pr.Damage, pr.OwnerID)...)

	def := GetProjectileDef(pr.Kind)
	if def.BlastRadius <= 0 {
		return events
	}
	for _, o := range g.players {
		if o.ID == victim.ID || o.ID == pr.OwnerID || o.State != StateActive {
			continue
		}
		d := o.Position.Dist(pr.Position)
		if d > def.BlastRadius {
			continue
		}
		splash := pr.Damage * splashDamageFactor * (1 - d/def.BlastRadius)
		events = append(events, g.applyHit(o, splash, pr.OwnerID)...)
	}
	return events
}

// grantAchievement marks an achievement once, scores it and queues the
// unlock for persistence.
func (g *Game) grantAchievement(p *Player, id string) []GameEvent {
	def, ok := AchievementByID(id)
	if !ok || p.Achievements[id] {
		return nil
	}
	p.Achievements[id] = true
	events := []GameEvent{{
		Kind:     EventAchievementUnlocked,
		PlayerID: p.ID,
		Reason:   id,
	}}
	if reward := p.AddScore(def.Points, ReasonAchievement); reward > 0 {
		events = append(events, GameEvent{
			Kind:     EventScore,
			PlayerID: p.ID,
			Amount:   float64(reward),
			Reason:   ReasonAchievement.String(),
		})
	}
	if p.AccountID > 0 {
		g.recorder.UnlockAchievement(p.AccountID, id)
	}
	return events
}
