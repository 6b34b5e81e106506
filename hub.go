package main

import "sync"

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to sessions
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Auth & persistence
	db       *DB
	auth     *Auth
	recorder *Recorder
	rewards  *RewardDispatcher
	// Online auth users: accountID -> *Client
	onlineMu    sync.RWMutex
	onlineUsers map[int64]*Client
}

// NewHub creates a new Hub with database
func NewHub(db *DB) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		ipConns:     make(map[string]int),
		db:          db,
		auth:        NewAuth(db),
		onlineUsers: make(map[int64]*Client),
	}
	h.recorder = NewRecorder(db)
	h.rewards = NewRewardDispatcher(NewLedgerRewardService(db), h.notifyRewardFailure)
	h.sessions = NewSessionManager(h.rewards, h.recorder)
	return h
}

// notifyRewardFailure tells a still-connected player their token award
// was abandoned. Score is unaffected.
func (h *Hub) notifyRewardFailure(n RewardNotice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.playerID == n.PlayerID {
			c.SendJSON(Envelope{T: MsgRewardFail, Data: RewardFailMsg{
				Amount: n.Amount,
				Reason: n.Reason,
			}})
			return
		}
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
	metricConnections.Inc()
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
	metricConnections.Dec()
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			// Dropping the player also cancels their pending timers
			if client.sessionID != "" {
				h.sessions.RemovePlayer(client.sessionID, client.playerID)
			}
			if client.lobbyID != "" {
				h.sessions.LeaveLobby(client.lobbyID, client.playerID)
			}
			if client.accountID > 0 {
				h.SetOffline(client.accountID)
			}
		}
	}
}

// Stop shuts down the hub's background services
func (h *Hub) Stop() {
	h.rewards.Stop()
	h.recorder.Stop()
}

// SetOnline marks an authenticated account as online
func (h *Hub) SetOnline(accountID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	h.onlineUsers[accountID] = client
}

// SetOffline removes an authenticated account from online tracking
func (h *Hub) SetOffline(accountID int64) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	delete(h.onlineUsers, accountID)
}

// IsOnline checks if an account is connected
func (h *Hub) IsOnline(accountID int64) bool {
	h.onlineMu.RLock()
	defer h.onlineMu.RUnlock()
	_, ok := h.onlineUsers[accountID]
	return ok
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
