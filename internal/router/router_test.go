package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialvibe/backend/internal/handler"
	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/metrics"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/service"
	"socialvibe/backend/internal/testutil"
	"socialvibe/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	r, _ := newTestRouterWithHub(t)
	return r
}

func newTestRouterWithHub(t *testing.T) (*gin.Engine, *hub.Hub) {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, logger)
	h := hub.NewHub()

	activities := service.NewActivityService(store, nil, nil, m, logger)
	return Setup(Config{
		Activities:     activities,
		Users:          service.NewUserService(store, activities, nil, h, logger),
		Chats:          service.NewChatService(store, h, m, logger),
		DB:             db,
		Hub:            h,
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: []string{"*"},
		JWTSecret:      testSecret,
		Logger:         logger,
	}), h
}

type client struct {
	t     *testing.T
	r     http.Handler
	token string
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (c *client) createUser(name string) handler.UserResponse {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/users", map[string]string{
		"name":  name,
		"email": strings.ToLower(name) + "@example.com",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeInto[handler.UserResponse](c.t, w)
}

func TestRouter_WaitlistFlow(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}

	host := c.createUser("Host")
	ana := c.createUser("Ana")
	ben := c.createUser("Ben")

	w := c.do(http.MethodPost, "/api/activities", map[string]interface{}{
		"title":            "Bouldering",
		"location":         "Gym",
		"date":             "Sun",
		"tag":              "sport",
		"max_participants": 2,
		"host_id":          host.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	activity := decodeInto[handler.ActivityResponse](t, w)
	assert.Equal(t, 1, activity.Participants)
	assert.Equal(t, 1, activity.Needed)

	base := "/api/activities/" + activity.ID.String()

	w = c.do(http.MethodPost, base+"/join", map[string]string{"user_id": ana.ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decodeInto[handler.JoinResponse](t, w)
	assert.False(t, joined.Waitlisted)
	assert.Equal(t, "full", joined.Activity.Status)

	w = c.do(http.MethodPost, base+"/join", map[string]string{"user_id": ben.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Added to waitlist", decodeInto[handler.JoinResponse](t, w).Message)

	w = c.do(http.MethodPost, base+"/join", map[string]string{"user_id": ben.ID.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, base+"/leave", map[string]string{"user_id": ana.ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	left := decodeInto[handler.LeaveResponse](t, w)
	require.NotNil(t, left.Promoted)
	assert.Equal(t, ben.ID, left.Promoted.UserID)
	assert.Equal(t, 2, left.Activity.Participants)

	w = c.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeInto[handler.ActivityDetailResponse](t, w)
	assert.Equal(t, 2, detail.Participants)
	assert.Len(t, detail.ParticipantList, 2)

	w = c.do(http.MethodGet, "/api/users/"+ben.ID.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeInto[handler.UserStatsResponse](t, w).Participated)
}

func TestRouter_BearerTokenActsAsUser(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	host := c.createUser("Host")
	guest := c.createUser("Guest")

	w := c.do(http.MethodPost, "/api/activities", map[string]interface{}{
		"title": "Board games", "location": "Cafe", "date": "Fri", "tag": "social",
		"host_id": host.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	activity := decodeInto[handler.ActivityResponse](t, w)

	token, err := jwt.GenerateToken(testSecret, guest.ID, time.Hour)
	require.NoError(t, err)
	c.token = token

	w = c.do(http.MethodPost, "/api/activities/"+activity.ID.String()+"/favorite", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeInto[handler.FavoriteResponse](t, w).Favorited)

	c.token = ""
	w = c.do(http.MethodGet, "/api/activities/user/favorites/"+guest.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]handler.ActivityResponse](t, w), 1)

	w = c.do(http.MethodPost, "/api/activities/"+activity.ID.String()+"/favorite", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ChatFlow(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	a := c.createUser("Alice")
	b := c.createUser("Bob")

	w := c.do(http.MethodPost, "/api/chats", map[string]interface{}{
		"name":       "Pair",
		"member_ids": []uuid.UUID{a.ID, b.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	chat := decodeInto[handler.ChatResponse](t, w)

	w = c.do(http.MethodPost, "/api/chats/"+chat.ID.String()+"/messages", map[string]string{
		"content": "hi", "user_id": a.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decodeInto[handler.ChatMessageResponse](t, w)

	w = c.do(http.MethodGet, "/api/chats/user/"+b.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	summaries := decodeInto[[]handler.ChatSummaryResponse](t, w)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)

	w = c.do(http.MethodPut, "/api/chats/"+chat.ID.String()+"/messages/read", map[string]interface{}{
		"user_id": b.ID.String(), "message_ids": []uuid.UUID{msg.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeInto[handler.MarkReadResponse](t, w).Updated)

	w = c.do(http.MethodPost, "/api/chats/"+uuid.NewString()+"/messages", map[string]string{
		"content": "hi", "user_id": a.ID.String(),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// readUntilClosed collects the frames of conn until the server closes it.
func readUntilClosed(t *testing.T, conn *websocket.Conn) []map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var frames []map[string]interface{}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			require.True(t, errors.As(err, &closeErr), "expected the server to close the stream, got %v", err)
			return frames
		}
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		frames = append(frames, frame)
	}
}

func frameTypes(frames []map[string]interface{}) []string {
	types := make([]string, 0, len(frames))
	for _, f := range frames {
		types = append(types, f["type"].(string))
	}
	return types
}

func TestRouter_ChatStreamFollowsMembership(t *testing.T) {
	r, h := newTestRouterWithHub(t)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c := &client{t: t, r: r}

	alice := c.createUser("Alice")
	bob := c.createUser("Bob")
	carol := c.createUser("Carol")

	w := c.do(http.MethodPost, "/api/chats", map[string]interface{}{
		"name":       "Trio",
		"member_ids": []uuid.UUID{alice.ID, bob.ID, carol.ID},
		"is_group":   true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	chat := decodeInto[handler.ChatResponse](t, w)

	dial := func(userID uuid.UUID) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chats/" + chat.ID.String() + "/ws?user_id=" + userID.String()
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	aliceConn := dial(alice.ID)
	bobConn := dial(bob.ID)
	require.Eventually(t, func() bool { return h.ClientCount(chat.ID) == 2 }, 2*time.Second, 10*time.Millisecond)

	w = c.do(http.MethodDelete, "/api/chats/"+chat.ID.String()+"/members/"+alice.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/api/chats/"+chat.ID.String()+"/messages", map[string]string{
		"content": "after removal", "user_id": bob.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	aliceFrames := readUntilClosed(t, aliceConn)
	assert.Equal(t, []string{hub.EventMemberRemoved}, frameTypes(aliceFrames))
	assert.Equal(t, 1, h.ClientCount(chat.ID))

	_, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/chats/"+chat.ID.String()+"/ws?user_id="+alice.ID.String(), nil)
	assert.Error(t, err)

	w = c.do(http.MethodDelete, "/api/chats/"+chat.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bobFrames := readUntilClosed(t, bobConn)
	assert.Equal(t, []string{hub.EventMemberRemoved, hub.EventMessageCreated, hub.EventChatDeleted}, frameTypes(bobFrames))
	assert.Equal(t, "after removal", bobFrames[1]["payload"].(map[string]interface{})["content"])
	assert.Eventually(t, func() bool { return h.ClientCount(chat.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_Infrastructure(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}

	w := c.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeInto[handler.HealthResponse](t, w).Status)

	c.do(http.MethodGet, "/api/users", nil)
	w = c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "socialvibe_http_requests_total")

	w = c.do(http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Route not found"}`, w.Body.String())

	w = c.do(http.MethodPost, "/api/activities", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decodeInto[handler.ValidationErrorResponse](t, w).Errors, 4)

	w = c.do(http.MethodGet, "/api/activities?page=1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-Total-Count"))
}

func TestRouter_SwaggerDocumentsServedPaths(t *testing.T) {
	r := newTestRouter(t)
	c := &client{t: t, r: r}

	w := c.do(http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/", doc.BasePath)

	documented := 0
	for _, route := range r.Routes() {
		if route.Path != "/health" && !strings.HasPrefix(route.Path, "/api/") {
			continue
		}
		segments := strings.Split(route.Path, "/")
		for i, s := range segments {
			if strings.HasPrefix(s, ":") {
				segments[i] = "{" + s[1:] + "}"
			}
		}
		path := strings.Join(segments, "/")
		assert.Contains(t, doc.Paths, path, "%s %s is served but not documented", route.Method, route.Path)
		documented++
	}
	assert.Greater(t, documented, 20)
	for path := range doc.Paths {
		assert.True(t, path == "/health" || strings.HasPrefix(path, "/api/"), "%s is documented but not served", path)
	}
}
