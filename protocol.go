package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin       = "join"        // join a session (creates one ad hoc if none given)
	MsgLeave      = "leave"       // leave current session
	MsgMove       = "move"        // position/rotation/velocity report + controls
	MsgAction     = "action"      // shoot / hit / use-item
	MsgAchieve    = "achieve"     // report achievement or mission progress
	MsgEnd        = "end"         // request session end
	MsgLobbyJoin  = "lobby_join"  // join (or create) a pre-match lobby
	MsgLobbyStart = "lobby_start" // lobby leader starts the match
	MsgList       = "list"        // list sessions
	MsgCheck      = "check"       // check if a session exists
	MsgCreate     = "create"      // create session explicitly
	MsgRegister   = "register"
	MsgLogin      = "login"
	MsgAuth       = "auth" // re-auth with a stored token
	MsgProfile    = "profile"
)

// Server -> Client message types
const (
	MsgInit        = "init"    // full state snapshot (binary msgpack)
	MsgDelta       = "delta"   // changed-fields state delta (binary msgpack)
	MsgWelcome     = "welcome" // join confirmation with assigned id
	MsgJoined      = "joined"  // another player joined
	MsgLeft        = "left"    // a player left
	MsgMoved       = "moved"   // authoritative position correction
	MsgProjSpawn   = "proj_spawn"
	MsgProjGone    = "proj_gone"
	MsgHit         = "hit"
	MsgDefeat      = "defeat"
	MsgRespawn     = "respawn"
	MsgComplete    = "complete" // session over, final rankings
	MsgReject      = "reject"   // action rejected, originating client only
	MsgError       = "error"
	MsgSessions    = "sessions"
	MsgChecked     = "checked"
	MsgCreated     = "created"
	MsgLobby       = "lobby"       // lobby roster update
	MsgLobbyBegin  = "lobby_begin" // lobby converted to a session
	MsgFuelOut     = "fuel_out"    // engine flameout, owner only
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
	MsgRewardFail  = "reward_fail" // reward collaborator gave up, non-fatal
)

// Action types inside an MsgAction
const (
	ActionShoot   = "shoot"
	ActionHit     = "hit"
	ActionUseItem = "use-item"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// SettingsMsg carries session settings on create/join
type SettingsMsg struct {
	Mode       int     `json:"mode"`
	TimeLimit  float64 `json:"tl,omitempty"`
	MaxPlayers int     `json:"max,omitempty"`
	Difficulty int     `json:"diff,omitempty"`
	MapID      string  `json:"map,omitempty"`
}

// JoinMsg is sent when a player wants to join a session
type JoinMsg struct {
	Name      string       `json:"name"`
	SessionID string       `json:"sid,omitempty"`
	Aircraft  int          `json:"ac"`
	Settings  *SettingsMsg `json:"settings,omitempty"`
}

// CreateMsg creates a session without joining it
type CreateMsg struct {
	SessionName string       `json:"sname"`
	Settings    *SettingsMsg `json:"settings,omitempty"`
}

// MoveMsg is the client's position report, sent at its own update rate
type MoveMsg struct {
	Pos      Vec3         `json:"pos"`
	Rot      Vec3         `json:"rot"`
	Vel      Vec3         `json:"vel"`
	Controls ControlInput `json:"in"`
	T        int64        `json:"ts"` // client unix millis
}

// ActionMsg requests a combat action
type ActionMsg struct {
	Type     string `json:"type"` // shoot | hit | use-item
	Weapon   string `json:"w,omitempty"`
	Item     string `json:"item,omitempty"`
	TargetID string `json:"tid,omitempty"`
}

// AchieveMsg reports achievement or mission progress
type AchieveMsg struct {
	Type string `json:"type"` // "achievement" or "mission"
	ID   string `json:"id"`
}

// LobbyJoinMsg joins or creates a pre-match lobby
type LobbyJoinMsg struct {
	LobbyID  string       `json:"lid,omitempty"`
	Name     string       `json:"name"`
	Aircraft int          `json:"ac"`
	Settings *SettingsMsg `json:"settings,omitempty"`
}

// CheckMsg asks whether a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Mode       int    `json:"mode"`
	MapID      string `json:"map,omitempty"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max,omitempty"`
	Status     int    `json:"status"`
}

// WelcomeMsg confirms a join with the assigned entity id
type WelcomeMsg struct {
	ID        string `json:"id"`
	SessionID string `json:"sid"`
	Aircraft  int    `json:"ac"`
}

// JoinedMsg announces another player entering the session
type JoinedMsg struct {
	ID       string `json:"id"`
	Name     string `json:"n"`
	Aircraft int    `json:"ac"`
}

// LeftMsg announces a player leaving
type LeftMsg struct {
	ID string `json:"id"`
}

// MovedMsg corrects a client whose reported position was clamped
type MovedMsg struct {
	ID    string `json:"id"`
	Pos   Vec3   `json:"pos"`
	Valid bool   `json:"ok"`
}

// ProjSpawnMsg announces a new projectile
type ProjSpawnMsg struct {
	ID     string  `json:"id"`
	Owner  string  `json:"o"`
	Kind   int     `json:"k"`
	Pos    Vec3    `json:"pos"`
	Dir    Vec3    `json:"dir"`
	Speed  float64 `json:"spd"`
	Target string  `json:"tid,omitempty"`
}

// ProjGoneMsg announces projectile removal
type ProjGoneMsg struct {
	ID     string `json:"id"`
	Reason string `json:"r"` // hit | expired | bounds
}

// HitMsg announces damage applied to a player
type HitMsg struct {
	VictimID   string  `json:"vid"`
	AttackerID string  `json:"aid,omitempty"`
	Damage     float64 `json:"dmg"`
	Health     float64 `json:"hp"`
}

// DefeatMsg announces a death
type DefeatMsg struct {
	VictimID   string `json:"vid"`
	VictimName string `json:"vn"`
	KillerID   string `json:"kid,omitempty"`
	KillerName string `json:"kn,omitempty"`
}

// RespawnMsg announces a player returning to the fight
type RespawnMsg struct {
	ID  string `json:"id"`
	Pos Vec3   `json:"pos"`
}

// RankEntry is one row of the final session standings
type RankEntry struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
	Reward int    `json:"reward"`
}

// CompleteMsg carries the final session standings
type CompleteMsg struct {
	SessionID string      `json:"sid"`
	Duration  float64     `json:"dur"`
	Rankings  []RankEntry `json:"ranks"`
}

// RejectMsg tells the originating client why an action was refused
type RejectMsg struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// FuelOutMsg notifies the owner their engine flamed out
type FuelOutMsg struct {
	ID string `json:"id"`
}

// RewardFailMsg notifies a player a token award could not be delivered.
// The in-game score is already applied and stays applied.
type RewardFailMsg struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// LobbyMemberInfo is one entry in a lobby roster
type LobbyMemberInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Aircraft int    `json:"ac"`
	Leader   bool   `json:"leader,omitempty"`
}

// LobbyMsg is the lobby roster broadcast
type LobbyMsg struct {
	ID      string            `json:"lid"`
	Members []LobbyMemberInfo `json:"members"`
}

// LobbyBeginMsg tells lobby members their match session is up
type LobbyBeginMsg struct {
	SessionID string  `json:"sid"`
	Countdown float64 `json:"countdown"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// LoginMsg authenticates with credentials
type LoginMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// AuthMsg authenticates with a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	AccountID int64  `json:"aid"`
}

// ProfileDataMsg returns cumulative account stats
type ProfileDataMsg struct {
	Username string  `json:"username"`
	Kills    int     `json:"kills"`
	Deaths   int     `json:"deaths"`
	Wins     int     `json:"wins"`
	Score    int     `json:"score"`
	Playtime float64 `json:"playtime"`
	Tokens   int     `json:"tokens"`
}
