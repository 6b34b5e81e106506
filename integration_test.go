package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

func startTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(openTestDB(t))
	go hub.Run()
	srv := httptest.NewServer(SetupRoutes(hub, t.TempDir()))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return srv, hub
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"t": msgType, "d": payload})
	if err != nil {
		t.Fatalf("marshal %s: %v", msgType, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// awaitText reads frames until a text envelope of the wanted type arrives,
// skipping state broadcasts and unrelated messages.
func awaitText(t *testing.T, conn *websocket.Conn, msgType string) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var env InEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		if env.T == MsgError {
			var e ErrorMsg
			json.Unmarshal(env.D, &e)
			t.Fatalf("waiting for %s, got error: %s", msgType, e.Msg)
		}
		if env.T == msgType {
			return env.D
		}
	}
}

// awaitBinary reads frames until a binary payload with the wanted frame
// marker arrives.
func awaitBinary(t *testing.T, conn *websocket.Conn, marker byte) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for frame %#x: %v", marker, err)
		}
		if kind == websocket.BinaryMessage && len(data) > 0 && data[0] == marker {
			return data[1:]
		}
	}
}

func TestJoinDeliversWelcomeAndSnapshot(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := dialWS(t, srv)

	sendEnvelope(t, conn, MsgJoin, JoinMsg{Name: "tester", Aircraft: int(AircraftFighter)})

	var welcome WelcomeMsg
	if err := json.Unmarshal(awaitText(t, conn, MsgWelcome), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.ID == "" || welcome.SessionID == "" {
		t.Fatalf("welcome: %+v", welcome)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(awaitBinary(t, conn, frameSnapshot), &snap); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SessionID != welcome.SessionID || snap.MapID == "" {
		t.Errorf("snapshot: sid=%q map=%q", snap.SessionID, snap.MapID)
	}
	var found bool
	for _, ps := range snap.Players {
		if ps.ID == welcome.ID {
			found = true
		}
	}
	if !found {
		t.Error("joining player missing from own snapshot")
	}
}

func TestMovingPlayerProducesDeltaFrames(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := dialWS(t, srv)

	sendEnvelope(t, conn, MsgJoin, JoinMsg{Name: "mover", Aircraft: 0})
	var welcome WelcomeMsg
	json.Unmarshal(awaitText(t, conn, MsgWelcome), &welcome)

	// Full throttle so the simulation keeps changing state
	sendEnvelope(t, conn, MsgMove, map[string]interface{}{
		"pos": Vec3{Y: 2000}, "rot": Vec3{}, "vel": Vec3{Z: 100},
		"in": map[string]interface{}{"t": 1.0}, "ts": time.Now().UnixMilli(),
	})

	var frame DeltaFrame
	if err := msgpack.Unmarshal(awaitBinary(t, conn, frameDelta), &frame); err != nil {
		t.Fatalf("delta: %v", err)
	}
	if len(frame.Players) == 0 {
		t.Error("delta frame with no player changes")
	}
}

func TestListSeesOtherSessions(t *testing.T) {
	srv, _ := startTestServer(t)
	host := dialWS(t, srv)
	sendEnvelope(t, host, MsgJoin, JoinMsg{Name: "host", Aircraft: 0})
	var welcome WelcomeMsg
	json.Unmarshal(awaitText(t, host, MsgWelcome), &welcome)

	browser := dialWS(t, srv)
	sendEnvelope(t, browser, MsgList, nil)

	var sessions []SessionInfo
	if err := json.Unmarshal(awaitText(t, browser, MsgSessions), &sessions); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	var found bool
	for _, s := range sessions {
		if s.ID == welcome.SessionID && s.Players == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("host session not listed: %+v", sessions)
	}
}

func TestCheckUnknownSession(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := dialWS(t, srv)

	sendEnvelope(t, conn, MsgCheck, CheckMsg{SID: "nope"})
	var checked CheckedMsg
	if err := json.Unmarshal(awaitText(t, conn, MsgChecked), &checked); err != nil {
		t.Fatalf("checked: %v", err)
	}
	if checked.Exists {
		t.Error("phantom session reported")
	}
}

func TestShootAnnouncedToSession(t *testing.T) {
	srv, _ := startTestServer(t)
	shooter := dialWS(t, srv)
	sendEnvelope(t, shooter, MsgJoin, JoinMsg{Name: "gunner", Aircraft: 0})
	var welcome WelcomeMsg
	json.Unmarshal(awaitText(t, shooter, MsgWelcome), &welcome)

	observer := dialWS(t, srv)
	sendEnvelope(t, observer, MsgJoin, JoinMsg{Name: "watcher", Aircraft: 0, SessionID: welcome.SessionID})
	awaitText(t, observer, MsgWelcome)

	sendEnvelope(t, shooter, MsgAction, ActionMsg{Type: ActionShoot})

	var spawn ProjSpawnMsg
	if err := json.Unmarshal(awaitText(t, observer, MsgProjSpawn), &spawn); err != nil {
		t.Fatalf("proj_spawn: %v", err)
	}
	if spawn.Owner != welcome.ID {
		t.Errorf("projectile owner %q, want %q", spawn.Owner, welcome.ID)
	}
}

func TestRegisterLoginAndProfile(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := dialWS(t, srv)

	sendEnvelope(t, conn, MsgRegister, RegisterMsg{Username: "maverick", Password: "topgun"})
	var authed AuthOKMsg
	if err := json.Unmarshal(awaitText(t, conn, MsgAuthOK), &authed); err != nil {
		t.Fatalf("auth_ok: %v", err)
	}
	if authed.Token == "" || authed.AccountID == 0 {
		t.Fatalf("auth_ok: %+v", authed)
	}

	sendEnvelope(t, conn, MsgProfile, nil)
	var profile ProfileDataMsg
	if err := json.Unmarshal(awaitText(t, conn, MsgProfileData), &profile); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Username != "maverick" {
		t.Errorf("profile: %+v", profile)
	}

	// A second connection resumes with the stored token
	conn2 := dialWS(t, srv)
	sendEnvelope(t, conn2, MsgAuth, AuthMsg{Token: authed.Token})
	var resumed AuthOKMsg
	if err := json.Unmarshal(awaitText(t, conn2, MsgAuthOK), &resumed); err != nil {
		t.Fatalf("token auth: %v", err)
	}
	if resumed.AccountID != authed.AccountID {
		t.Errorf("resumed as account %d, want %d", resumed.AccountID, authed.AccountID)
	}
}

func TestLobbyFlowOverWebsocket(t *testing.T) {
	srv, _ := startTestServer(t)
	leader := dialWS(t, srv)

	sendEnvelope(t, leader, MsgLobbyJoin, LobbyJoinMsg{Name: "leader", Aircraft: 0})
	var roster LobbyMsg
	if err := json.Unmarshal(awaitText(t, leader, MsgLobby), &roster); err != nil {
		t.Fatalf("lobby roster: %v", err)
	}
	if len(roster.Members) != 1 || !roster.Members[0].Leader {
		t.Fatalf("roster: %+v", roster)
	}

	sendEnvelope(t, leader, MsgLobbyStart, nil)
	var begin LobbyBeginMsg
	if err := json.Unmarshal(awaitText(t, leader, MsgLobbyBegin), &begin); err != nil {
		t.Fatalf("lobby_begin: %v", err)
	}
	if begin.SessionID == "" || begin.Countdown != LobbyCountdown {
		t.Errorf("begin: %+v", begin)
	}

	// The announced session is joinable
	sendEnvelope(t, leader, MsgJoin, JoinMsg{Name: "leader", Aircraft: 0, SessionID: begin.SessionID})
	awaitText(t, leader, MsgWelcome)
}

func TestHTTPEndpoints(t *testing.T) {
	srv, hub := startTestServer(t)

	resp, err := http.Get(srv.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("leaderboard status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/qr?sid=unknown")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("qr for unknown session: status %d", resp.StatusCode)
	}

	sess := hub.sessions.CreateSession("invite", DefaultSettings(ModeDogfight), 0)
	defer sess.Game.Stop()
	resp, err = http.Get(srv.URL + "/qr?sid=" + sess.ID)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("qr: status %d type %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
