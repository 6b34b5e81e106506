package main

import (
	"math"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// fakeClient records everything the game sends it.
type fakeClient struct {
	mu     sync.Mutex
	json   []Envelope
	binary [][]byte
}

func (f *fakeClient) SendJSON(msg interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if env, ok := msg.(Envelope); ok {
		f.json = append(f.json, env)
	}
}

func (f *fakeClient) SendBinary(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = append(f.binary, append([]byte(nil), data...))
}

func (f *fakeClient) count(t string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, env := range f.json {
		if env.T == t {
			n++
		}
	}
	return n
}

func (f *fakeClient) last(t string) (Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.json) - 1; i >= 0; i-- {
		if f.json[i].T == t {
			return f.json[i], true
		}
	}
	return Envelope{}, false
}

func newTestGame() *Game {
	g := NewGame("test-session", DefaultSettings(ModeDogfight), nil, nil)
	g.Begin(0)
	return g
}

// addTestPlayer joins a player and pins them to a deterministic spot at
// altitude, active and past the spawn protection window.
func addTestPlayer(g *Game, name string, pos Vec3) (*Player, *fakeClient) {
	p := g.AddPlayer(name, AircraftFighter, 0)
	if p == nil {
		return nil, nil
	}
	c := &fakeClient{}
	g.SetClient(p.ID, c)
	g.mu.Lock()
	p.Position = pos
	p.Velocity = Vec3{}
	p.State = StateActive
	p.InvulnT = 0
	g.mu.Unlock()
	return p, c
}

func TestAddPlayerCapacity(t *testing.T) {
	g := NewGame("s", GameSettings{Mode: ModeDogfight, MaxPlayers: 2, MapID: "atoll"}, nil, nil)
	g.Begin(0)

	if g.AddPlayer("a", AircraftFighter, 0) == nil {
		t.Fatal("first join refused")
	}
	if g.AddPlayer("b", AircraftBomber, 0) == nil {
		t.Fatal("second join refused")
	}
	if g.AddPlayer("c", AircraftFighter, 0) != nil {
		t.Error("join accepted past capacity")
	}
	if g.PlayerCount() != 2 {
		t.Errorf("player count = %d", g.PlayerCount())
	}
}

func TestJoinRefusedWhileEnding(t *testing.T) {
	g := newTestGame()
	addTestPlayer(g, "a", Vec3{Y: 2000})

	g.mu.Lock()
	g.endSession("test")
	g.mu.Unlock()

	if g.AddPlayer("late", AircraftFighter, 0) != nil {
		t.Error("join accepted after results went out")
	}
}

func TestTerrainImpactDamage(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{X: 100, Y: 2000, Z: 100})
	p.Velocity = Vec3{Y: -50}

	cols := []Collision{{
		Type:     CollisionTerrain,
		Position: Vec3{X: 100, Y: 30, Z: 100},
		Normal:   Vec3{Y: 1},
		Severity: 1.0,
	}}
	g.mu.Lock()
	p.Position.Y = 25
	events := g.resolveCollisions(p, cols)
	g.dispatch(events)
	g.mu.Unlock()

	if p.Health != MaxHealth-terrainDamageScale {
		t.Errorf("health = %.1f, want %.1f", p.Health, MaxHealth-terrainDamageScale)
	}
	if p.Position.Y != 30 {
		t.Errorf("not pushed to the surface: y=%.1f", p.Position.Y)
	}
	if p.Velocity.Y < 0 {
		t.Errorf("still sinking: vy=%.1f", p.Velocity.Y)
	}
	if c.count(MsgHit) != 1 {
		t.Error("no hit broadcast")
	}
}

func TestBoundaryImpactCancelsOutwardVelocity(t *testing.T) {
	g := newTestGame()
	p, _ := addTestPlayer(g, "a", Vec3{Y: 2000})
	p.Position.X = g.world.Bounds.Max.X + 20
	p.Velocity = Vec3{X: 100, Z: 50}

	cols := []Collision{{
		Type:     CollisionBoundary,
		Normal:   Vec3{X: 1},
		Severity: boundarySeverity,
	}}
	g.mu.Lock()
	g.resolveCollisions(p, cols)
	g.mu.Unlock()

	if p.Position.X > g.world.Bounds.Max.X {
		t.Errorf("still outside: x=%.1f", p.Position.X)
	}
	if p.Velocity.X != 0 {
		t.Errorf("outward velocity survived: vx=%.1f", p.Velocity.X)
	}
	if p.Velocity.Z != 50 {
		t.Errorf("tangential velocity lost: vz=%.1f", p.Velocity.Z)
	}
	if p.Health != MaxHealth-boundaryDamageScale*boundarySeverity {
		t.Errorf("health = %.1f", p.Health)
	}
}

func TestInvulnerableAircraftTakesNoDamage(t *testing.T) {
	g := newTestGame()
	p, _ := addTestPlayer(g, "a", Vec3{Y: 2000})
	p.InvulnT = 1.0

	g.mu.Lock()
	events := g.applyHit(p, 50, "")
	g.mu.Unlock()

	if len(events) != 0 {
		t.Error("events emitted for an invulnerable aircraft")
	}
	if p.Health != MaxHealth {
		t.Errorf("health = %.1f", p.Health)
	}
}

func TestProjectileKillCreditAndStreak(t *testing.T) {
	g := newTestGame()
	killer, _ := addTestPlayer(g, "hunter", Vec3{Y: 2000})
	victim, _ := addTestPlayer(g, "prey", Vec3{X: 200, Y: 2000})
	victim.Health = 10

	pr := NewProjectile(killer, ProjMissile, victim.ID)
	pr.Position = victim.Position
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	events := g.resolveProjectileHit(victim, pr)
	g.mu.Unlock()

	if victim.State != StateRespawning {
		t.Fatalf("victim state = %v", victim.State)
	}
	if victim.Deaths != 1 {
		t.Errorf("deaths = %d", victim.Deaths)
	}
	if killer.Kills != 1 || killer.KillStreak != 1 {
		t.Errorf("kills=%d streak=%d", killer.Kills, killer.KillStreak)
	}
	if killer.Score <= 0 {
		t.Error("killer not scored")
	}
	if !killer.Achievements["first_blood"] {
		t.Error("first_blood not granted on the first kill")
	}
	if _, ok := g.projectiles[pr.ID]; ok {
		t.Error("projectile not consumed")
	}

	var sawDefeat bool
	for _, ev := range events {
		if ev.Kind == EventPlayerDefeated && ev.PlayerID == victim.ID && ev.OtherID == killer.ID {
			sawDefeat = true
		}
	}
	if !sawDefeat {
		t.Error("no defeat event with killer attribution")
	}
}

func TestBlastSplashExcludesOwner(t *testing.T) {
	g := newTestGame()
	owner, _ := addTestPlayer(g, "owner", Vec3{Y: 2000})
	victim, _ := addTestPlayer(g, "victim", Vec3{X: 300, Y: 2000})
	bystander, _ := addTestPlayer(g, "near", Vec3{X: 310, Y: 2000})
	// Owner parked inside their own blast radius
	owner.Position = Vec3{X: 305, Y: 2000}

	pr := NewProjectile(owner, ProjMissile, "")
	pr.Position = victim.Position
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	g.resolveProjectileHit(victim, pr)
	g.mu.Unlock()

	def := GetProjectileDef(ProjMissile)
	if victim.Health != MaxHealth-def.Damage {
		t.Errorf("direct hit health = %.1f", victim.Health)
	}
	wantSplash := def.Damage * splashDamageFactor * (1 - 10/def.BlastRadius)
	if got := MaxHealth - bystander.Health; math.Abs(got-wantSplash) > 1e-9 {
		t.Errorf("splash = %.2f, want %.2f", got, wantSplash)
	}
	if owner.Health != MaxHealth {
		t.Error("owner damaged by own blast")
	}
}

func TestShootSpawnsProjectileAndCooldownRejects(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{Y: 2000})

	g.HandleAction(p.ID, ActionMsg{Type: ActionShoot})
	if len(g.projectiles) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(g.projectiles))
	}
	if c.count(MsgProjSpawn) != 1 {
		t.Error("no spawn broadcast")
	}

	// Immediately again: primary is still cooling down
	g.HandleAction(p.ID, ActionMsg{Type: ActionShoot})
	if len(g.projectiles) != 1 {
		t.Error("cooldown not enforced")
	}
	if c.count(MsgReject) != 1 {
		t.Error("no rejection sent")
	}
}

func TestShootRejectsUnequippedWeapon(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{Y: 2000})

	g.HandleAction(p.ID, ActionMsg{Type: ActionShoot, Weapon: "iron_bomb"})
	if len(g.projectiles) != 0 {
		t.Error("fired a weapon that is not equipped")
	}
	if c.count(MsgReject) != 1 {
		t.Error("no rejection sent")
	}
}

func TestMissileLockRequiresActiveTarget(t *testing.T) {
	g := newTestGame()
	p, _ := addTestPlayer(g, "a", Vec3{Y: 2000})
	other, _ := addTestPlayer(g, "b", Vec3{X: 500, Y: 2000})
	other.State = StateRespawning

	g.HandleAction(p.ID, ActionMsg{Type: ActionShoot, Weapon: "heatseeker", TargetID: other.ID})
	if len(g.projectiles) != 1 {
		t.Fatal("missile not fired")
	}
	for _, pr := range g.projectiles {
		if pr.TargetID != "" {
			t.Error("missile locked onto an inactive target")
		}
	}
}

func TestClaimedHitVerifiedAgainstProjectiles(t *testing.T) {
	g := newTestGame()
	shooter, c := addTestPlayer(g, "a", Vec3{Y: 2000})
	target, _ := addTestPlayer(g, "b", Vec3{X: 400, Y: 2000})

	// No projectile anywhere near the target: claim refused
	g.HandleAction(shooter.ID, ActionMsg{Type: ActionHit, TargetID: target.ID})
	if target.Health != MaxHealth {
		t.Fatal("damage applied without a matching projectile")
	}
	if c.count(MsgReject) != 1 {
		t.Error("bogus claim not rejected")
	}

	// Park one of the shooter's bullets next to the target: claim accepted
	pr := NewProjectile(shooter, ProjBullet, "")
	pr.Position = target.Position.Add(Vec3{X: 10})
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	g.mu.Unlock()

	g.HandleAction(shooter.ID, ActionMsg{Type: ActionHit, TargetID: target.ID})
	if target.Health != MaxHealth-GetProjectileDef(ProjBullet).Damage {
		t.Errorf("health = %.1f after verified hit", target.Health)
	}
	if _, ok := g.projectiles[pr.ID]; ok {
		t.Error("claimed projectile not consumed")
	}

	// The same projectile can't be claimed twice
	g.HandleAction(shooter.ID, ActionMsg{Type: ActionHit, TargetID: target.ID})
	if c.count(MsgReject) != 2 {
		t.Error("second claim on a spent projectile accepted")
	}
}

func TestClaimedHitOutOfRange(t *testing.T) {
	g := newTestGame()
	shooter, c := addTestPlayer(g, "a", Vec3{Y: 2000})
	target, _ := addTestPlayer(g, "b", Vec3{X: maxGunRange + 500, Y: 2000})

	pr := NewProjectile(shooter, ProjBullet, "")
	pr.Position = target.Position
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	g.mu.Unlock()

	g.HandleAction(shooter.ID, ActionMsg{Type: ActionHit, TargetID: target.ID})
	if target.Health != MaxHealth {
		t.Error("hit accepted beyond gun range")
	}
	if c.count(MsgReject) != 1 {
		t.Error("no rejection sent")
	}
}

func TestRespawnAfterDelay(t *testing.T) {
	g := newTestGame()
	shooter, c := addTestPlayer(g, "a", Vec3{Y: 2000})
	victim, _ := addTestPlayer(g, "b", Vec3{X: 300, Y: 2000})
	victim.Health = 5

	pr := NewProjectile(shooter, ProjBullet, "")
	pr.Position = victim.Position
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	g.mu.Unlock()
	g.HandleAction(shooter.ID, ActionMsg{Type: ActionHit, TargetID: victim.ID})

	if victim.State != StateRespawning {
		t.Fatalf("victim state = %v after death", victim.State)
	}

	// One tick short of the respawn delay: still down
	for i := 0; i < int(RespawnDelay*TickRate)-1; i++ {
		g.update()
	}
	if victim.State != StateRespawning {
		t.Fatal("respawned early")
	}

	g.update()
	g.update()
	if victim.State != StateActive && victim.State != StateSpawning {
		t.Fatalf("state = %v after respawn delay", victim.State)
	}
	if victim.Health != MaxHealth {
		t.Errorf("health not restored: %.1f", victim.Health)
	}
	if !victim.Invulnerable() {
		t.Error("no spawn protection after respawn")
	}
	if c.count(MsgRespawn) != 1 {
		t.Errorf("respawn broadcasts = %d, want 1", c.count(MsgRespawn))
	}
}

func TestRemovePlayerCancelsPendingRespawn(t *testing.T) {
	g := newTestGame()
	shooter, c := addTestPlayer(g, "a", Vec3{Y: 2000})
	victim, _ := addTestPlayer(g, "b", Vec3{X: 300, Y: 2000})
	victim.Health = 5

	pr := NewProjectile(shooter, ProjBullet, "")
	pr.Position = victim.Position
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	g.mu.Unlock()
	g.HandleAction(shooter.ID, ActionMsg{Type: ActionHit, TargetID: victim.ID})

	g.RemovePlayer(victim.ID)

	for i := 0; i < int(RespawnDelay*TickRate)+5; i++ {
		g.update()
	}
	if c.count(MsgRespawn) != 0 {
		t.Error("respawn fired for a removed player")
	}
	if g.HasPlayer(victim.ID) {
		t.Error("player still present")
	}
}

func TestFlareBreaksMissileLocks(t *testing.T) {
	g := newTestGame()
	attacker, _ := addTestPlayer(g, "a", Vec3{Y: 2000})
	defender, _ := addTestPlayer(g, "b", Vec3{X: 800, Y: 2000})

	pr := NewProjectile(attacker, ProjMissile, defender.ID)
	g.mu.Lock()
	g.projectiles[pr.ID] = pr
	g.mu.Unlock()

	flares := defender.Flares
	g.HandleAction(defender.ID, ActionMsg{Type: ActionUseItem, Item: "flare"})

	if pr.TargetID != "" {
		t.Error("missile lock survived the flare")
	}
	if defender.Flares != flares-1 {
		t.Errorf("flares = %d, want %d", defender.Flares, flares-1)
	}
}

func TestMissionCompletesOnceAtTarget(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{Y: 2000})

	def, _ := MissionByID("recon_photos")
	for i := 0; i < def.Target-1; i++ {
		g.HandleAchievement(p.ID, AchieveMsg{Type: "mission", ID: "recon_photos"})
	}
	if p.Score != 0 {
		t.Fatal("scored before the mission target")
	}

	g.HandleAchievement(p.ID, AchieveMsg{Type: "mission", ID: "recon_photos"})
	scored := p.Score
	if scored <= 0 {
		t.Fatal("mission completion not scored")
	}
	if c.count(MsgAchieve) != 1 {
		t.Error("no completion notification")
	}

	// Further reports are ignored
	g.HandleAchievement(p.ID, AchieveMsg{Type: "mission", ID: "recon_photos"})
	if p.Score != scored {
		t.Error("mission scored twice")
	}
}

func TestReportableAchievementGrantedOnce(t *testing.T) {
	g := newTestGame()
	p, _ := addTestPlayer(g, "a", Vec3{Y: 2000})

	g.HandleAchievement(p.ID, AchieveMsg{Type: "achievement", ID: "low_pass"})
	if !p.Achievements["low_pass"] {
		t.Fatal("reportable achievement not granted")
	}
	scored := p.Score
	g.HandleAchievement(p.ID, AchieveMsg{Type: "achievement", ID: "low_pass"})
	if p.Score != scored {
		t.Error("achievement scored twice")
	}
}

func TestStreakAchievementsNotReportable(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{Y: 2000})

	g.HandleAchievement(p.ID, AchieveMsg{Type: "achievement", ID: "ace"})
	if p.Achievements["ace"] {
		t.Error("kill-streak achievement granted by client report")
	}
	if c.count(MsgReject) != 1 {
		t.Error("no rejection sent")
	}
}

func TestHandleMoveClampsTeleport(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{Y: 2000})

	// First report establishes the baseline
	g.HandleMove(p.ID, MoveMsg{Pos: Vec3{X: 0, Y: 2000}, T: 1000})
	if p.Violations != 0 {
		t.Fatal("first report counted as a violation")
	}

	// 100ms later, 3km away: impossible for any airframe
	g.HandleMove(p.ID, MoveMsg{Pos: Vec3{X: 3000, Y: 2000}, T: 1100})
	if p.Violations != 1 {
		t.Errorf("violations = %d, want 1", p.Violations)
	}
	if p.Position.X >= 3000 {
		t.Error("teleport accepted")
	}
	if c.count(MsgMoved) != 1 {
		t.Error("no correction sent to the offender")
	}

	// Plausible follow-up from the corrected position
	prev := p.Position
	g.HandleMove(p.ID, MoveMsg{Pos: prev.Add(Vec3{X: 20}), T: 1200})
	if p.Violations != 1 {
		t.Error("legitimate move counted as a violation")
	}
}

type captureRewards struct {
	mu     sync.Mutex
	awards map[int64]int
}

func (c *captureRewards) AwardTokens(accountID int64, amount int, reason string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.awards == nil {
		c.awards = make(map[int64]int)
	}
	c.awards[accountID] += amount
	return "tx", nil
}

func TestEndSessionRanksAndPaysOnce(t *testing.T) {
	svc := &captureRewards{}
	rewards := NewRewardDispatcher(svc, nil)

	g := NewGame("s", DefaultSettings(ModeDogfight), rewards, nil)
	g.Begin(0)

	first := g.AddPlayer("gold", AircraftFighter, 101)
	second := g.AddPlayer("silver", AircraftFighter, 102)
	third := g.AddPlayer("bronze", AircraftFighter, 103)
	c := &fakeClient{}
	g.SetClient(first.ID, c)

	g.mu.Lock()
	first.Score, first.Kills = 300, 3
	second.Score, second.Kills = 200, 2
	third.Score, third.Kills = 100, 1
	g.mu.Unlock()

	g.RequestEnd(first.ID)
	if g.Status() != SessionEnding {
		t.Fatalf("status = %v", g.Status())
	}

	// A second end request must be a no-op
	g.RequestEnd(second.ID)

	rewards.Stop()
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.awards[101] != 50 || svc.awards[102] != 30 || svc.awards[103] != 15 {
		t.Errorf("placement payouts = %v", svc.awards)
	}

	env, ok := c.last(MsgComplete)
	if !ok {
		t.Fatal("no results broadcast")
	}
	msg, ok := env.Data.(CompleteMsg)
	if !ok {
		t.Fatalf("results payload %T", env.Data)
	}
	if len(msg.Rankings) != 3 || msg.Rankings[0].ID != first.ID || msg.Rankings[0].Reward != 50 {
		t.Errorf("rankings: %+v", msg.Rankings)
	}
	if c.count(MsgComplete) != 1 {
		t.Error("results broadcast more than once")
	}
}

func TestRankingTiesBrokenByKills(t *testing.T) {
	g := newTestGame()
	a, ca := addTestPlayer(g, "a", Vec3{Y: 2000})
	b, _ := addTestPlayer(g, "b", Vec3{X: 100, Y: 2000})

	g.mu.Lock()
	a.Score, a.Kills = 100, 1
	b.Score, b.Kills = 100, 4
	g.endSession("test")
	g.mu.Unlock()

	env, ok := ca.last(MsgComplete)
	if !ok {
		t.Fatal("no results broadcast")
	}
	msg := env.Data.(CompleteMsg)
	if msg.Rankings[0].ID != b.ID {
		t.Error("tie not broken by kills")
	}
}

func TestTimeLimitEndsSession(t *testing.T) {
	g := NewGame("s", GameSettings{Mode: ModeDogfight, TimeLimit: 0.05, MaxPlayers: 4, MapID: "atoll"}, nil, nil)
	g.Begin(0)
	addTestPlayer(g, "a", Vec3{Y: 2000})

	for i := 0; i < 10; i++ {
		g.update()
	}
	if st := g.Status(); st != SessionEnding {
		t.Errorf("status = %v after time limit", st)
	}
}

func TestLastPlayerLeavingTearsDown(t *testing.T) {
	g := newTestGame()
	p, _ := addTestPlayer(g, "a", Vec3{Y: 2000})

	done := make(chan struct{})
	g.SetCleanup(func() { close(done) })

	g.RemovePlayer(p.ID)
	<-done // cleanup runs on its own goroutine
	if g.Status() != SessionEnded {
		t.Errorf("status = %v", g.Status())
	}
}

func TestBroadcastDeltaCadence(t *testing.T) {
	g := newTestGame()
	p, c := addTestPlayer(g, "a", Vec3{Y: 2000})
	p.Input = ControlInput{Throttle: 1}
	p.Velocity = forwardVector(p.Rotation).Scale(150)

	for i := 0; i < TickRate; i++ {
		g.update()
	}
	c.mu.Lock()
	frames := len(c.binary)
	c.mu.Unlock()
	if frames == 0 {
		t.Fatal("no delta frames broadcast")
	}
	if frames > BroadcastRate {
		t.Errorf("%d frames in one second, cap is %d", frames, BroadcastRate)
	}
	c.mu.Lock()
	firstByte := c.binary[0][0]
	c.mu.Unlock()
	if firstByte != frameDelta {
		t.Errorf("frame type = %#x, want %#x", firstByte, frameDelta)
	}
}

func TestSnapshotBytesStartsWithMarker(t *testing.T) {
	g := newTestGame()
	addTestPlayer(g, "a", Vec3{Y: 2000})

	data, err := g.SnapshotBytes()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if data[0] != frameSnapshot {
		t.Errorf("frame type = %#x, want %#x", data[0], frameSnapshot)
	}
}

func TestRamDamageSymmetricOnShallowOverlap(t *testing.T) {
	g := newTestGame()
	// Fighters overlap by 1.5 m on X, closing at 100 m/s. The 2 m
	// separation push applied while resolving the first aircraft must not
	// hide the contact from the second one.
	a, _ := addTestPlayer(g, "a", Vec3{X: 100, Y: 2000, Z: 100})
	b, _ := addTestPlayer(g, "b", Vec3{X: 110.5, Y: 2000, Z: 100})

	g.mu.Lock()
	a.Velocity = Vec3{X: 50}
	b.Velocity = Vec3{X: -50}
	g.mu.Unlock()

	g.update()

	dmgA := MaxHealth - a.Health
	dmgB := MaxHealth - b.Health
	if dmgA <= 0 || dmgB <= 0 {
		t.Fatalf("both airframes must take ram damage, got a=%v b=%v", dmgA, dmgB)
	}
	if math.Abs(dmgA-dmgB) > 1e-9 {
		t.Errorf("ram damage must be symmetric, got a=%v b=%v", dmgA, dmgB)
	}
}

func TestRamKillStillDamagesSurvivor(t *testing.T) {
	g := newTestGame()
	a, _ := addTestPlayer(g, "a", Vec3{X: 100, Y: 2000, Z: 100})
	b, _ := addTestPlayer(g, "b", Vec3{X: 110.5, Y: 2000, Z: 100})

	g.mu.Lock()
	a.Velocity = Vec3{X: 120}
	b.Velocity = Vec3{X: -120}
	b.Health = 1 // dies to the ram
	g.mu.Unlock()

	g.update()

	if b.State != StateRespawning {
		t.Fatalf("b should be downed by the ram, state %s", b.State)
	}
	if a.Health >= MaxHealth {
		t.Error("survivor must take its share of the ram damage")
	}
}

func TestSnapshotTimeLeftZeroForUntimedSession(t *testing.T) {
	g := NewGame("untimed", GameSettings{Mode: ModeSurvival, TimeLimit: 0, MaxPlayers: 8, MapID: "atoll"}, nil, nil)
	g.Begin(0)
	for i := 0; i < TickRate; i++ {
		g.update()
	}

	data, err := g.SnapshotBytes()
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data[1:], &snap); err != nil {
		t.Fatal(err)
	}
	if snap.TimeLeft != 0 {
		t.Errorf("untimed session must report TimeLeft 0, got %v", snap.TimeLeft)
	}
}
