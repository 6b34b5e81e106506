package main

import (
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60
	BroadcastRate  = 30
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate

	maxProjectilesPerSession = 500
	maxGunRange              = 1200.0

	SessionGraceSeconds = 30.0
	LobbyCountdown      = 5.0
)

// Frame type markers prepended to binary state payloads.
const (
	frameSnapshot byte = 0x01
	frameDelta    byte = 0x02
)

// Placement rewards for the top three finishers.
var placementRewards = []int{50, 30, 15}

// Broadcaster is the per-player outbound side of a connection. The game
// never blocks on it.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

type scheduledTask struct {
	id      int
	dueTick uint64
	ownerID string // player id, or "" for session-owned work
	fn      func()
}

// Game owns one session's simulation. All mutable state is guarded by mu;
// the tick loop and every inbound handler serialize through it.
type Game struct {
	mu sync.RWMutex

	sessionID string
	settings  GameSettings
	world     *World

	players     map[string]*Player
	projectiles map[string]*Projectile
	clients     map[string]Broadcaster

	tick    uint64
	elapsed float64
	status  SessionStatus

	tasks      []scheduledTask
	nextTaskID int

	removedProj []string

	resultsSent bool
	cleanup     func()

	rewards  *RewardDispatcher
	recorder *Recorder

	stop    chan struct{}
	stopped sync.Once
}

func NewGame(sessionID string, settings GameSettings, rewards *RewardDispatcher, recorder *Recorder) *Game {
	return &Game{
		sessionID:   sessionID,
		settings:    settings,
		world:       NewWorld(settings.MapID),
		players:     make(map[string]*Player),
		projectiles: make(map[string]*Projectile),
		clients:     make(map[string]Broadcaster),
		status:      SessionCreated,
		rewards:     rewards,
		recorder:    recorder,
		stop:        make(chan struct{}),
	}
}

func (g *Game) SetCleanup(fn func()) {
	g.mu.Lock()
	g.cleanup = fn
	g.mu.Unlock()
}

// Begin moves the session into play, immediately or after a countdown.
func (g *Game) Begin(countdown float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != SessionCreated {
		return
	}
	if countdown <= 0 {
		g.status = SessionInProgress
		return
	}
	g.scheduleAfter(countdown, "", func() {
		if g.status == SessionCreated {
			g.status = SessionInProgress
		}
	})
}

func (g *Game) Run() {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.update()
		}
	}
}

func (g *Game) Stop() {
	g.stopped.Do(func() { close(g.stop) })
}

func (g *Game) Status() SessionStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, p := range g.players {
		if p.State != StateDisconnected {
			n++
		}
	}
	return n
}

func (g *Game) HasPlayer(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.players[id]
	return ok
}

func (g *Game) Info(name string) SessionInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return SessionInfo{
		ID:         g.sessionID,
		Name:       name,
		Mode:       int(g.settings.Mode),
		MapID:      g.world.MapID,
		Players:    len(g.players),
		MaxPlayers: g.settings.MaxPlayers,
		Status:     int(g.status),
	}
}

// scheduler

// scheduleAfter registers fn to run on the tick loop after the given
// delay. Caller must hold mu. Tasks owned by a player are cancelled when
// that player is removed.
func (g *Game) scheduleAfter(seconds float64, ownerID string, fn func()) int {
	g.nextTaskID++
	t := scheduledTask{
		id:      g.nextTaskID,
		dueTick: g.tick + uint64(seconds*TickRate),
		ownerID: ownerID,
		fn:      fn,
	}
	g.tasks = append(g.tasks, t)
	return t.id
}

func (g *Game) cancelTasksFor(ownerID string) {
	kept := g.tasks[:0]
	for _, t := range g.tasks {
		if t.ownerID != ownerID {
			kept = append(kept, t)
		}
	}
	g.tasks = kept
}

func (g *Game) runDueTasks() {
	var due []func()
	kept := g.tasks[:0]
	for _, t := range g.tasks {
		if t.dueTick <= g.tick {
			due = append(due, t.fn)
		} else {
			kept = append(kept, t)
		}
	}
	g.tasks = kept
	for _, fn := range due {
		fn()
	}
}

// tick loop

func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	metricTicks.Inc()
	g.runDueTasks()

	if g.status != SessionInProgress {
		return
	}

	dt := 1.0 / float64(TickRate)
	g.elapsed += dt

	var events []GameEvent
	for _, p := range g.players {
		if p.State == StateDisconnected {
			continue
		}
		events = append(events, p.Update(dt)...)
		if p.State == StateActive {
			StepFlight(p, dt)
		}
	}

	for id, pr := range g.projectiles {
		pr.Update(dt, g.players, g.world)
		if !pr.Alive {
			delete(g.projectiles, id)
			events = append(events, GameEvent{
				Kind:         EventProjectileRemoved,
				ProjectileID: id,
				Reason:       pr.Gone,
				Position:     pr.Position,
			})
		}
	}

	// Detect for everyone before resolving anything: resolution moves
	// aircraft and consumes projectiles, so interleaving the two would
	// let the first party's resolution hide the collision from the second.
	type detected struct {
		player *Player
		cols   []Collision
	}
	var hits []detected
	for _, p := range g.players {
		if p.State != StateActive {
			continue
		}
		if cols := DetectCollisions(p, g.world, g.players, g.projectiles); len(cols) > 0 {
			hits = append(hits, detected{p, cols})
		}
	}
	for _, d := range hits {
		events = append(events, g.resolveCollisions(d.player, d.cols)...)
	}

	g.dispatch(events)

	if g.settings.TimeLimit > 0 && g.elapsed >= g.settings.TimeLimit {
		g.endSession("time")
	}

	if g.tick%BroadcastEvery == 0 {
		g.broadcastDelta()
	}
}

// dispatch fans simulation events out to clients and side services.
// Must be called with mu held.
func (g *Game) dispatch(events []GameEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case EventPlayerHit:
			health := 0.0
			if p, ok := g.players[ev.PlayerID]; ok {
				health = p.Health
			}
			g.broadcast(Envelope{T: MsgHit, Data: HitMsg{
				VictimID:   ev.PlayerID,
				AttackerID: ev.OtherID,
				Damage:     ev.Amount,
				Health:     health,
			}})

		case EventPlayerDefeated:
			msg := DefeatMsg{VictimID: ev.PlayerID, KillerID: ev.OtherID}
			if v, ok := g.players[ev.PlayerID]; ok {
				msg.VictimName = v.Name
			}
			if k, ok := g.players[ev.OtherID]; ok {
				msg.KillerName = k.Name
			}
			g.broadcast(Envelope{T: MsgDefeat, Data: msg})
			id := ev.PlayerID
			g.scheduleAfter(RespawnDelay, id, func() {
				p, ok := g.players[id]
				if !ok || p.State != StateRespawning {
					return
				}
				p.Spawn(g.world.SpawnPosition())
				g.broadcast(Envelope{T: MsgRespawn, Data: RespawnMsg{
					ID:  p.ID,
					Pos: p.Position,
				}})
			})

		case EventPlayerRespawned:
			if p, ok := g.players[ev.PlayerID]; ok {
				g.broadcast(Envelope{T: MsgRespawn, Data: RespawnMsg{
					ID:  p.ID,
					Pos: p.Position,
				}})
			}

		case EventProjectileSpawned:
			if pr, ok := g.projectiles[ev.ProjectileID]; ok {
				g.broadcast(Envelope{T: MsgProjSpawn, Data: pr.ToSpawnMsg()})
			}

		case EventProjectileRemoved:
			g.removedProj = append(g.removedProj, ev.ProjectileID)
			g.broadcast(Envelope{T: MsgProjGone, Data: ProjGoneMsg{
				ID:     ev.ProjectileID,
				Reason: ev.Reason,
			}})

		case EventFuelEmpty:
			g.sendTo(ev.PlayerID, Envelope{T: MsgFuelOut, Data: FuelOutMsg{ID: ev.PlayerID}})

		case EventScore:
			if p, ok := g.players[ev.PlayerID]; ok && p.AccountID > 0 {
				g.rewards.Award(p.AccountID, p.ID, int(ev.Amount), ev.Reason)
			}

		case EventAchievementUnlocked:
			g.sendTo(ev.PlayerID, Envelope{T: MsgAchieve, Data: AchieveMsg{
				Type: "achievement",
				ID:   ev.Reason,
			}})

		case EventMissionComplete:
			g.sendTo(ev.PlayerID, Envelope{T: MsgAchieve, Data: AchieveMsg{
				Type: "mission",
				ID:   ev.Reason,
			}})
		}
	}
}

// membership

func (g *Game) AddPlayer(name string, aircraft AircraftType, accountID int64) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == SessionEnding || g.status == SessionEnded {
		return nil
	}
	if len(g.players) >= g.settings.MaxPlayers {
		return nil
	}
	p := NewPlayer(GenerateID(4), name, aircraft, accountID)
	p.Spawn(g.world.SpawnPosition())
	g.players[p.ID] = p
	metricPlayers.Inc()
	g.broadcast(Envelope{T: MsgJoined, Data: JoinedMsg{
		ID:       p.ID,
		Name:     p.Name,
		Aircraft: int(p.Aircraft),
	}})
	return p
}

func (g *Game) SetClient(playerID string, c Broadcaster) {
	g.mu.Lock()
	g.clients[playerID] = c
	g.mu.Unlock()
}

// RemovePlayer drops a player and synchronously cancels every timer that
// references them, so nothing fires against a departed player.
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.players[id]; !ok {
		return
	}
	g.cancelTasksFor(id)
	delete(g.players, id)
	delete(g.clients, id)
	metricPlayers.Dec()
	g.broadcast(Envelope{T: MsgLeft, Data: LeftMsg{ID: id}})

	if len(g.players) == 0 && g.status != SessionEnding {
		g.teardown()
	}
}

// inbound handlers

func (g *Game) HandleMove(playerID string, msg MoveMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != SessionInProgress {
		return
	}
	p, ok := g.players[playerID]
	if !ok || p.State != StateActive {
		return
	}

	p.Input = sanitizeControls(msg.Controls)
	p.Rotation = Vec3{
		X: NormalizeAngle(msg.Rot.X),
		Y: NormalizeAngle(msg.Rot.Y),
		Z: NormalizeAngle(msg.Rot.Z),
	}

	if p.LastUpdate == 0 {
		p.Position = g.world.ClampToBounds(msg.Pos)
		p.Velocity = msg.Vel
		p.LastUpdate = msg.T
		return
	}

	res := ValidateMovement(p.Position, msg.Pos, msg.Vel, p.LastUpdate, msg.T, p.Profile().EnvelopeSpeed())
	p.Position = res.Position
	p.Velocity = res.Velocity
	p.LastUpdate = msg.T
	if !res.Valid {
		p.Violations++
		metricRejected.WithLabelValues("move").Inc()
		g.sendTo(playerID, Envelope{T: MsgMoved, Data: MovedMsg{
			ID:  p.ID,
			Pos: p.Position,
		}})
	}
}

func sanitizeControls(in ControlInput) ControlInput {
	in.Pitch = Clamp(in.Pitch, -1, 1)
	in.Roll = Clamp(in.Roll, -1, 1)
	in.Yaw = Clamp(in.Yaw, -1, 1)
	in.Throttle = Clamp(in.Throttle, 0, 1)
	return in
}

func (g *Game) HandleAction(playerID string, msg ActionMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != SessionInProgress {
		return
	}
	p, ok := g.players[playerID]
	if !ok {
		return
	}

	var err string
	var events []GameEvent
	switch msg.Type {
	case ActionShoot:
		events, err = g.handleShoot(p, msg)
	case ActionHit:
		events, err = g.handleClaimedHit(p, msg)
	case ActionUseItem:
		events, err = g.handleUseItem(p, msg)
	default:
		err = "unknown action"
	}
	if err != "" {
		metricRejected.WithLabelValues("action").Inc()
		g.sendTo(playerID, Envelope{T: MsgReject, Data: RejectMsg{Action: msg.Type, Reason: err}})
		return
	}
	g.dispatch(events)
}

func (g *Game) handleShoot(p *Player, msg ActionMsg) ([]GameEvent, string) {
	weaponID := msg.Weapon
	if weaponID == "" {
		weaponID = p.Loadout.PrimaryWeapon
	}
	if weaponID != p.Loadout.PrimaryWeapon && weaponID != p.Loadout.SecondaryWeapon {
		return nil, "weapon not equipped"
	}
	w, ok := WeaponByID(weaponID)
	if !ok {
		return nil, "unknown weapon"
	}

	var err error
	if weaponID == p.Loadout.SecondaryWeapon {
		err = p.FireSecondary(w)
	} else {
		err = p.FirePrimary(w)
	}
	if err != nil {
		return nil, err.Error()
	}

	if len(g.projectiles) >= maxProjectilesPerSession {
		return nil, "projectile limit"
	}

	targetID := ""
	if w.Kind == ProjMissile {
		if t, ok := g.players[msg.TargetID]; ok && t.ID != p.ID && t.State == StateActive {
			targetID = t.ID
		}
	}
	pr := NewProjectile(p, w.Kind, targetID)
	g.projectiles[pr.ID] = pr
	metricProjectiles.Inc()
	return []GameEvent{{
		Kind:         EventProjectileSpawned,
		PlayerID:     p.ID,
		ProjectileID: pr.ID,
		Position:     pr.Position,
	}}, ""
}

// handleClaimedHit verifies a client-reported gun hit against the
// server's own projectile state before applying any damage.
func (g *Game) handleClaimedHit(p *Player, msg ActionMsg) ([]GameEvent, string) {
	target, ok := g.players[msg.TargetID]
	if !ok || target.ID == p.ID {
		return nil, "bad target"
	}
	if target.State != StateActive {
		return nil, "target not active"
	}
	if p.Position.Dist(target.Position) > maxGunRange {
		return nil, "out of range"
	}

	var best *Projectile
	bestDist := 0.0
	for _, pr := range g.projectiles {
		if pr.OwnerID != p.ID || !pr.Alive {
			continue
		}
		def := GetProjectileDef(pr.Kind)
		d := pr.Position.Dist(target.Position)
		if d > claimTolerance+def.BlastRadius {
			continue
		}
		if best == nil || d < bestDist {
			best = pr
			bestDist = d
		}
	}
	if best == nil {
		return nil, "no matching projectile"
	}
	return g.resolveProjectileHit(target, best), ""
}

func (g *Game) handleUseItem(p *Player, msg ActionMsg) ([]GameEvent, string) {
	switch msg.Item {
	case "flare":
		if err := p.UseCountermeasure(); err != nil {
			return nil, err.Error()
		}
		// A flare breaks the lock of every missile tracking this aircraft.
		for _, pr := range g.projectiles {
			if pr.Kind == ProjMissile && pr.TargetID == p.ID {
				pr.TargetID = ""
			}
		}
		return nil, ""
	default:
		return nil, "unknown item"
	}
}

func (g *Game) HandleAchievement(playerID string, msg AchieveMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != SessionInProgress {
		return
	}
	p, ok := g.players[playerID]
	if !ok {
		return
	}

	var events []GameEvent
	switch msg.Type {
	case "mission":
		def, ok := MissionByID(msg.ID)
		if !ok {
			g.sendTo(playerID, Envelope{T: MsgReject, Data: RejectMsg{Action: "achieve", Reason: "unknown mission"}})
			return
		}
		if p.Missions[msg.ID] >= def.Target {
			return // already complete
		}
		p.Missions[msg.ID]++
		if p.Missions[msg.ID] < def.Target {
			return
		}
		events = append(events, GameEvent{Kind: EventMissionComplete, PlayerID: p.ID, Reason: msg.ID})
		if reward := p.AddScore(def.Points, ReasonMission); reward > 0 {
			events = append(events, GameEvent{
				Kind:     EventScore,
				PlayerID: p.ID,
				Amount:   float64(reward),
				Reason:   ReasonMission.String(),
			})
		}
	case "achievement":
		def, ok := AchievementByID(msg.ID)
		if !ok || !def.Reportable {
			g.sendTo(playerID, Envelope{T: MsgReject, Data: RejectMsg{Action: "achieve", Reason: "unknown achievement"}})
			return
		}
		events = g.grantAchievement(p, msg.ID)
	default:
		g.sendTo(playerID, Envelope{T: MsgReject, Data: RejectMsg{Action: "achieve", Reason: "unknown type"}})
		return
	}
	g.dispatch(events)
}

func (g *Game) RequestEnd(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.players[playerID]; !ok {
		return
	}
	if g.status == SessionInProgress {
		g.endSession("requested")
	}
}

// session end

// endSession ranks the players, pays placement rewards exactly once and
// schedules the teardown after a grace period so clients can show results.
// Must be called with mu held.
func (g *Game) endSession(reason string) {
	if g.resultsSent {
		return
	}
	g.resultsSent = true
	g.status = SessionEnding

	ranked := make([]*Player, 0, len(g.players))
	for _, p := range g.players {
		ranked = append(ranked, p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Kills > ranked[j].Kills
	})

	rankings := make([]RankEntry, len(ranked))
	for i, p := range ranked {
		reward := 0
		if i < len(placementRewards) {
			reward = placementRewards[i]
		}
		rankings[i] = RankEntry{
			Rank:   i + 1,
			ID:     p.ID,
			Name:   p.Name,
			Score:  p.Score,
			Kills:  p.Kills,
			Deaths: p.Deaths,
			Reward: reward,
		}
		if reward > 0 && p.AccountID > 0 {
			g.rewards.Award(p.AccountID, p.ID, reward, "placement")
		}
	}

	g.broadcast(Envelope{T: MsgComplete, Data: CompleteMsg{
		SessionID: g.sessionID,
		Duration:  g.elapsed,
		Rankings:  rankings,
	}})
	g.recordResults(reason, rankings)

	log.Printf("session %s ended (%s), %d players", g.sessionID, reason, len(ranked))
	g.scheduleAfter(SessionGraceSeconds, "", g.teardown)
}

func (g *Game) recordResults(reason string, rankings []RankEntry) {
	rec := SessionRecord{
		SessionID: g.sessionID,
		Mode:      int(g.settings.Mode),
		MapID:     g.world.MapID,
		Duration:  g.elapsed,
		Reason:    reason,
		Players:   len(rankings),
	}
	rows := make([]SessionPlayerRecord, 0, len(rankings))
	for _, r := range rankings {
		p, ok := g.players[r.ID]
		if !ok {
			continue
		}
		rows = append(rows, SessionPlayerRecord{
			SessionID: g.sessionID,
			PlayerID:  p.ID,
			AccountID: p.AccountID,
			Name:      p.Name,
			Aircraft:  int(p.Aircraft),
			Rank:      r.Rank,
			Score:     p.Score,
			Kills:     p.Kills,
			Deaths:    p.Deaths,
		})
	}
	g.recorder.RecordSessionEnd(rec, rows)
}

func (g *Game) teardown() {
	if g.status == SessionEnded {
		return
	}
	g.status = SessionEnded
	g.tasks = nil
	if g.cleanup != nil {
		go g.cleanup()
	}
	g.Stop()
}

// outbound

// broadcast sends a JSON envelope to every connected client. mu held.
func (g *Game) broadcast(env Envelope) {
	for _, c := range g.clients {
		c.SendJSON(env)
	}
}

func (g *Game) sendTo(playerID string, env Envelope) {
	if c, ok := g.clients[playerID]; ok {
		c.SendJSON(env)
	}
}

// SnapshotBytes builds a full binary snapshot for one joining player and
// resets their delta baselines so the next delta is relative to it.
func (g *Game) SnapshotBytes() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		SessionID: g.sessionID,
		Tick:      g.tick,
		Mode:      int(g.settings.Mode),
		TimeLeft:  g.timeLeft(),
		MapID:     g.world.MapID,
		Bounds:    g.world.Bounds,
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, p.Snap())
		p.ResetSync()
	}
	for _, pr := range g.projectiles {
		snap.Projectiles = append(snap.Projectiles, pr.Snap())
	}

	body, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, err
	}
	return append([]byte{frameSnapshot}, body...), nil
}

// timeLeft reports remaining session time, or 0 for untimed modes. mu held.
func (g *Game) timeLeft() float64 {
	if g.settings.TimeLimit <= 0 {
		return 0
	}
	return math.Max(0, g.settings.TimeLimit-g.elapsed)
}

// broadcastDelta ships only what changed since the last frame. mu held.
func (g *Game) broadcastDelta() {
	frame := DeltaFrame{Tick: g.tick}
	for _, p := range g.players {
		if d, changed := p.DiffSnap(); changed {
			frame.Players = append(frame.Players, d)
		}
	}
	for _, pr := range g.projectiles {
		frame.Projectiles = append(frame.Projectiles, ProjectileDelta{
			ID:        pr.ID,
			Position:  pr.Position,
			Direction: pr.Direction,
		})
	}
	frame.Removed = g.removedProj
	g.removedProj = nil

	if len(frame.Players) == 0 && len(frame.Projectiles) == 0 && len(frame.Removed) == 0 {
		return
	}
	body, err := msgpack.Marshal(&frame)
	if err != nil {
		log.Printf("delta marshal: %v", err)
		return
	}
	data := append([]byte{frameDelta}, body...)
	metricBroadcastBytes.Add(float64(len(data) * len(g.clients)))
	for _, c := range g.clients {
		c.SendBinary(data)
	}
}
