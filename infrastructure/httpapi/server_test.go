package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"quickchat/auth"
	"quickchat/repositories"
	"quickchat/runtime"
	"quickchat/runtime/workers"
	"quickchat/search"
	"quickchat/services"
)

type fixture struct {
	server *httptest.Server
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.Open(t.TempDir(), slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	messages := repositories.NewMessageRepository(db, slog.Default())
	users := repositories.NewUserRepository(db)
	registry := runtime.NewRegistry(slog.Default())
	dispatcher := runtime.NewDispatcher(slog.Default(), registry, messages, nil)
	aggregator := services.NewUnseenAggregator(messages, users, 4)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	chat := services.NewChatService(slog.Default(), dispatcher, registry, messages, users, aggregator, index)
	accounts := services.NewAuthService(users, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = workers.NewPresenceFanout(slog.Default(), registry).Run(ctx)
	}()

	server := NewServer(slog.Default(), chat, accounts, tokens, 8, 20, []string{"*"})
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return fixture{server: ts}
}

func (f fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	req := require.New(t)

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		req.NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequest(method, f.server.URL+path, reader)
	req.NoError(err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(request)
	req.NoError(err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (f fixture) signup(t *testing.T, email, name string) (token, userID string) {
	req := require.New(t)
	resp, body := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "s3cret-pass", "displayName": name,
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	req.Equal(true, body["success"])

	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func Test_Status_Endpoint_Is_Public(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/api/status")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}

func Test_Signup_Then_Login_Then_Check(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, userID := f.signup(t, "alice@example.com", "Alice")

	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret-pass",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	resp, body = f.do(t, http.MethodGet, "/api/auth/check", token, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(userID, body["user"].(map[string]any)["id"])
}

func Test_Login_Wrong_Password_Is_Unauthorized(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.signup(t, "alice@example.com", "Alice")

	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass-word",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Equal(false, body["success"])
}

func Test_Messages_Routes_Require_Token(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/messages/users", "", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/messages/users", "not-a-token", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Send_Sidebar_History_Roundtrip(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	aliceToken, _ := f.signup(t, "alice@example.com", "Alice")
	bobToken, bobID := f.signup(t, "bob@example.com", "Bob")

	resp, body := f.do(t, http.MethodPost, "/api/messages/send/"+bobID, aliceToken, map[string]string{
		"text": "hello bob",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	newMessage := body["newMessage"].(map[string]any)
	req.Equal("hello bob", newMessage["text"])
	req.Equal(false, newMessage["seen"])
	senderID := newMessage["senderId"].(string)

	// Bob's sidebar shows Alice with one unseen message
	resp, body = f.do(t, http.MethodGet, "/api/messages/users", bobToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	counts := body["unseenMessages"].(map[string]any)
	req.Equal(float64(1), counts[senderID])

	// Opening the conversation returns it and clears the badge
	resp, body = f.do(t, http.MethodGet, "/api/messages/"+senderID, bobToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Len(body["messages"].([]any), 1)

	resp, body = f.do(t, http.MethodGet, "/api/messages/users", bobToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	counts = body["unseenMessages"].(map[string]any)
	req.NotContains(counts, senderID)
}

func Test_Send_Empty_Body_Is_Rejected(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	aliceToken, _ := f.signup(t, "alice@example.com", "Alice")
	_, bobID := f.signup(t, "bob@example.com", "Bob")

	resp, body := f.do(t, http.MethodPost, "/api/messages/send/"+bobID, aliceToken, map[string]string{})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal(false, body["success"])
}

func Test_MarkSeen_Endpoint(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	aliceToken, _ := f.signup(t, "alice@example.com", "Alice")
	bobToken, bobID := f.signup(t, "bob@example.com", "Bob")

	_, body := f.do(t, http.MethodPost, "/api/messages/send/"+bobID, aliceToken, map[string]string{
		"text": "mark me",
	})
	messageID := body["newMessage"].(map[string]any)["id"].(string)

	resp, _ := f.do(t, http.MethodPut, "/api/messages/mark/"+messageID, bobToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/api/messages/mark/not-a-uuid", bobToken, nil)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func Test_Search_Requires_Query(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	token, _ := f.signup(t, "alice@example.com", "Alice")

	resp, _ := f.do(t, http.MethodGet, "/api/messages/search", token, nil)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func Test_Search_Finds_Sent_Message(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	aliceToken, _ := f.signup(t, "alice@example.com", "Alice")
	_, bobID := f.signup(t, "bob@example.com", "Bob")

	resp, _ := f.do(t, http.MethodPost, "/api/messages/send/"+bobID, aliceToken, map[string]string{
		"text": "the quarterly report is ready",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/messages/search?q=quarterly", aliceToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Len(body["hits"].([]any), 1)
}

func Test_UpdateProfile(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	token, _ := f.signup(t, "alice@example.com", "Alice")

	resp, body := f.do(t, http.MethodPut, "/api/auth/update-profile", token, map[string]string{
		"bio": "gone fishing",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("gone fishing", body["user"].(map[string]any)["bio"])
}

// Full real-time path: two websocket sessions, presence snapshots on both,
// then a message pushed live to the online receiver.
func Test_Websocket_Presence_And_Live_Message(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	aliceToken, aliceID := f.signup(t, "alice@example.com", "Alice")
	bobToken, bobID := f.signup(t, "bob@example.com", "Bob")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http")

	bobConn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?token="+bobToken, nil)
	req.NoError(err)
	defer bobConn.Close()

	// Connection establishment hands the newcomer an immediate snapshot
	evt := readEvent(t, bobConn)
	req.Equal("getOnlineUsers", evt.Event)

	aliceConn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?token="+aliceToken, nil)
	req.NoError(err)
	defer aliceConn.Close()

	// Bob learns that Alice came online
	evt = waitForEvent(t, bobConn, "getOnlineUsers", func(e wireEvent) bool {
		return containsAll(e.Data, aliceID, bobID)
	})
	req.Equal("getOnlineUsers", evt.Event)

	resp, _ := f.do(t, http.MethodPost, "/api/messages/send/"+bobID, aliceToken, map[string]string{
		"text": "ping",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	evt = waitForEvent(t, bobConn, "newMessage", func(wireEvent) bool { return true })
	message := evt.Data.(map[string]any)
	req.Equal("ping", message["text"])
	req.Equal(aliceID, message["senderId"])
}

func Test_Websocket_Rejects_Bad_Token(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws?token=garbage", nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

type wireEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	req := require.New(t)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var evt wireEvent
	req.NoError(conn.ReadJSON(&evt))
	return evt
}

// waitForEvent drains the connection until an event of the wanted name
// satisfies the predicate. Interleaved presence snapshots are skipped.
func waitForEvent(t *testing.T, conn *websocket.Conn, name string, ok func(wireEvent) bool) wireEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		evt := readEvent(t, conn)
		if evt.Event == name && ok(evt) {
			return evt
		}
	}
	t.Fatalf("no %s event observed before deadline", name)
	return wireEvent{}
}

func containsAll(data any, ids ...string) bool {
	list, ok := data.([]any)
	if !ok {
		return false
	}
	seen := map[string]bool{}
	for _, item := range list {
		if s, isString := item.(string); isString {
			seen[s] = true
		}
	}
	for _, id := range ids {
		if !seen[id] {
			return false
		}
	}
	return true
}
