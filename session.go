package main

import (
	"sync"

	"github.com/google/uuid"
)

const (
	maxSessions   = 100
	maxLobbySize  = 8
	defaultLobby  = "Briefing Room"
	adHocSessName = "Skirmish"
)

// Session represents one live match players can join
type Session struct {
	ID   string
	Name string
	Game *Game
}

// LobbyMember is one pilot waiting in a pre-match lobby
type LobbyMember struct {
	ID       string
	Name     string
	Aircraft AircraftType
	Client   Broadcaster
	Account  int64
}

// Lobby gathers pilots before a session starts. The first member is the
// leader and the only one who can launch the match.
type Lobby struct {
	ID       string
	Name     string
	Settings GameSettings
	Members  []*LobbyMember
}

func (l *Lobby) roster() LobbyMsg {
	msg := LobbyMsg{ID: l.ID}
	for i, m := range l.Members {
		msg.Members = append(msg.Members, LobbyMemberInfo{
			ID:       m.ID,
			Name:     m.Name,
			Aircraft: int(m.Aircraft),
			Leader:   i == 0,
		})
	}
	return msg
}

func (l *Lobby) broadcast(env Envelope) {
	for _, m := range l.Members {
		if m.Client != nil {
			m.Client.SendJSON(env)
		}
	}
}

// SessionManager handles creation and lookup of sessions and lobbies
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	lobbies  map[string]*Lobby

	rewards  *RewardDispatcher
	recorder *Recorder
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(rewards *RewardDispatcher, recorder *Recorder) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		lobbies:  make(map[string]*Lobby),
		rewards:  rewards,
		recorder: recorder,
	}
}

// CreateSession creates a new game session. Returns nil if limit reached.
// The session starts ticking immediately; with countdown <= 0 it is
// playable at once.
func (sm *SessionManager) CreateSession(name string, settings GameSettings, countdown float64) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	id := uuid.NewString()
	game := NewGame(id, settings, sm.rewards, sm.recorder)
	sess := &Session{
		ID:   id,
		Name: name,
		Game: game,
	}
	game.SetCleanup(func() { sm.dropSession(id) })
	sm.sessions[id] = sess
	metricSessions.Inc()
	game.Begin(countdown)
	go game.Run()
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

func (sm *SessionManager) dropSession(id string) {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	if ok {
		metricSessions.Dec()
		sess.Game.Stop()
	}
}

// RemovePlayer removes a player from a session. Empty sessions tear
// themselves down through the game's cleanup hook.
func (sm *SessionManager) RemovePlayer(sessionID, playerID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Game.RemovePlayer(playerID)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, sess.Game.Info(sess.Name))
	}
	return list
}

// SessionCount returns the number of live sessions
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// JoinLobby adds a member to a lobby, creating it when lobbyID is empty
// or unknown. Returns the lobby, or nil when it is full.
func (sm *SessionManager) JoinLobby(lobbyID string, m *LobbyMember, settings GameSettings) *Lobby {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	l, ok := sm.lobbies[lobbyID]
	if !ok {
		l = &Lobby{
			ID:       uuid.NewString(),
			Name:     defaultLobby,
			Settings: settings,
		}
		sm.lobbies[l.ID] = l
	}
	if len(l.Members) >= maxLobbySize || len(l.Members) >= l.Settings.MaxPlayers {
		return nil
	}
	l.Members = append(l.Members, m)
	l.broadcast(Envelope{T: MsgLobby, Data: l.roster()})
	return l
}

// LeaveLobby removes a member, dissolving the lobby when it empties
func (sm *SessionManager) LeaveLobby(lobbyID, memberID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	l, ok := sm.lobbies[lobbyID]
	if !ok {
		return
	}
	for i, m := range l.Members {
		if m.ID == memberID {
			l.Members = append(l.Members[:i], l.Members[i+1:]...)
			break
		}
	}
	if len(l.Members) == 0 {
		delete(sm.lobbies, lobbyID)
		return
	}
	l.broadcast(Envelope{T: MsgLobby, Data: l.roster()})
}

// StartLobby converts a lobby into a session after a short countdown.
// Only the leader may start. Members are told the session id and join
// through the normal path.
func (sm *SessionManager) StartLobby(lobbyID, memberID string) *Session {
	sm.mu.Lock()
	l, ok := sm.lobbies[lobbyID]
	if !ok || len(l.Members) == 0 || l.Members[0].ID != memberID {
		sm.mu.Unlock()
		return nil
	}
	delete(sm.lobbies, lobbyID)
	sm.mu.Unlock()

	sess := sm.CreateSession(l.Name, l.Settings, LobbyCountdown)
	if sess == nil {
		return nil
	}
	l.broadcast(Envelope{T: MsgLobbyBegin, Data: LobbyBeginMsg{
		SessionID: sess.ID,
		Countdown: LobbyCountdown,
	}})
	return sess
}
