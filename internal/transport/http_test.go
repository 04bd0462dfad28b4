package transport_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ggmemo/ggmemo/internal/autosave"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/domain/stats"
	"github.com/ggmemo/ggmemo/internal/kv"
	"github.com/ggmemo/ggmemo/internal/pagination"
	"github.com/ggmemo/ggmemo/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t       *testing.T
	ts      *testserver.TestServer
	headers map[string]string
}

func newClient(t *testing.T, ts *testserver.TestServer, headers map[string]string) *client {
	return &client{t: t, ts: ts, headers: headers}
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.ts.URL(path), r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func data[T any](t *testing.T, body []byte) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env.Data
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env.Error.Code
}

func TestHTTPServer_Health(t *testing.T) {
	ts := testserver.New(t)

	resp, err := http.Get(ts.URL("/health"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHTTPServer_QuickMemosPerDevice(t *testing.T) {
	ts := testserver.New(t)
	phone := newClient(t, ts, map[string]string{"X-Device-Id": "phone"})
	laptop := newClient(t, ts, map[string]string{"X-Device-Id": "laptop"})

	for _, text := range []string{"first", "second"} {
		resp, body := phone.do(http.MethodPost, "/api/v1/quick-memos", map[string]any{
			"result": "WIN", "rating": 4, "memo": text,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	_, body := phone.do(http.MethodGet, "/api/v1/quick-memos", nil)
	list := data[[]memo.Memo](t, body)
	require.Len(t, list, 2)
	require.Equal(t, "second", list[0].Memo)

	_, body = laptop.do(http.MethodGet, "/api/v1/quick-memos", nil)
	require.Empty(t, data[[]memo.Memo](t, body))

	resp, body := phone.do(http.MethodPut, "/api/v1/quick-memos/"+list[1].ID, map[string]any{
		"result": "LOSE", "memo": "edited",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "edited", data[memo.Memo](t, body).Memo)

	resp, body = phone.do(http.MethodPut, "/api/v1/quick-memos/missing", map[string]any{"result": "WIN"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", errorCode(t, body))

	_, body = phone.do(http.MethodGet, "/api/v1/quick-memos?page=2&perPage=1", nil)
	page := data[pagination.Page[memo.Memo]](t, body)
	require.Equal(t, 2, page.CurrentPage)
	require.Equal(t, "edited", page.Items[0].Memo)

	resp, _ = phone.do(http.MethodDelete, "/api/v1/quick-memos/"+list[0].ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = phone.do(http.MethodDelete, "/api/v1/quick-memos", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = phone.do(http.MethodGet, "/api/v1/quick-memos", nil)
	require.Empty(t, data[[]memo.Memo](t, body))
}

func TestHTTPServer_SessionsRequireIdentity(t *testing.T) {
	ts := testserver.New(t)
	anon := newClient(t, ts, nil)

	resp, body := anon.do(http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	bad := newClient(t, ts, map[string]string{"Authorization": "Bearer nope"})
	resp, _ = bad.do(http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_SessionFlow(t *testing.T) {
	ts := testserver.New(t)
	alice := newClient(t, ts, map[string]string{"Authorization": "Bearer " + ts.Token(t, "alice")})
	bob := newClient(t, ts, map[string]string{"X-User-Id": "bob"})

	resp, body := alice.do(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "Ranked"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	sess := data[session.BattleSession](t, body)
	require.Equal(t, "alice", sess.UserID)
	base := "/api/v1/sessions/" + sess.ID

	for _, m := range []map[string]any{
		{"title": "vs Ryu", "result": "WIN", "rating": 5, "memo": "good"},
		{"title": "vs Ken", "result": "LOSE", "rating": 2, "memo": "block more"},
	} {
		resp, body = alice.do(http.MethodPost, base+"/memos", m)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	_, body = alice.do(http.MethodGet, base+"/memos", nil)
	memos := data[[]memo.Memo](t, body)
	require.Len(t, memos, 2)
	require.Equal(t, "vs Ken", memos[0].Title)

	_, body = alice.do(http.MethodGet, base+"/stats", nil)
	st := data[stats.Stats](t, body)
	assert.Equal(t, 2, st.TotalGames)
	assert.Equal(t, "50.0", st.WinRate)
	assert.Equal(t, "3.5", st.AverageRating)

	resp, body = alice.do(http.MethodGet, base+"/export?hideRating=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	require.Contains(t, string(body), "# Battle History")
	require.NotContains(t, string(body), "**Rating:**")

	// Another user sees neither the session nor its memos.
	resp, body = bob.do(http.MethodGet, base+"/memos", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", errorCode(t, body))
	resp, _ = bob.do(http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	title := "Ranked (evening)"
	resp, body = alice.do(http.MethodPatch, base, map[string]any{"title": title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, title, data[session.BattleSession](t, body).Title)

	resp, body = alice.do(http.MethodPut, base+"/memos/"+memos[0].ID, map[string]any{
		"title": "vs Ken", "result": "WIN", "memo": "adapted",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))

	resp, _ = alice.do(http.MethodDelete, base+"/memos/"+memos[1].ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = alice.do(http.MethodDelete, base+"/memos", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = alice.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_ErrorMapping(t *testing.T) {
	ts := testserver.New(t)
	c := newClient(t, ts, map[string]string{"X-User-Id": "carol"})

	resp, body := c.do(http.MethodPost, "/api/v1/sessions", map[string]any{"title": strings.Repeat("x", 101)})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "SESSION_TITLE_TOO_LONG", errorCode(t, body))

	for i := 0; i < session.MaxSessionsPerUser; i++ {
		resp, body = c.do(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "s"})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	resp, body = c.do(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "one too many"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "SESSION_LIMIT_EXCEEDED", errorCode(t, body))

	_, body = c.do(http.MethodGet, "/api/v1/sessions", nil)
	sessions := data[[]session.BattleSession](t, body)
	require.Len(t, sessions, session.MaxSessionsPerUser)

	resp, body = c.do(http.MethodPost, "/api/v1/sessions/"+sessions[0].ID+"/memos", map[string]any{
		"result": "WIN", "memo": strings.Repeat("m", memo.MaxMemoLength+1),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "INVALID_INPUT", errorCode(t, body))

	req, err := http.NewRequest(http.MethodPost, ts.URL("/api/v1/sessions"), strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("X-User-Id", "carol")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	require.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp, _ = c.do(http.MethodDelete, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = c.do(http.MethodGet, "/api/v1/sessions", nil)
	require.Empty(t, data[[]session.BattleSession](t, body))
}

func TestHTTPServer_Draft(t *testing.T) {
	ts := testserver.New(t)
	c := newClient(t, ts, map[string]string{"X-User-Id": "dana"})

	resp, body := c.do(http.MethodPut, "/api/v1/draft", map[string]any{"content": "combo notes"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	status := data[autosave.Status](t, body)
	require.False(t, status.OverLimit)
	require.True(t, status.Pending)

	require.Eventually(t, func() bool {
		_, body := c.do(http.MethodGet, "/api/v1/draft", nil)
		return strings.Contains(string(body), "combo notes")
	}, 2*time.Second, 10*time.Millisecond)

	_, body = c.do(http.MethodPut, "/api/v1/draft", map[string]any{"content": strings.Repeat("z", 51)})
	require.True(t, data[autosave.Status](t, body).OverLimit)

	resp, body = c.do(http.MethodPost, "/api/v1/draft/flush", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, data[autosave.Status](t, body).Pending)

	_, body = c.do(http.MethodGet, "/api/v1/draft", nil)
	require.Equal(t, "combo notes", data[map[string]string](t, body)["content"])

	other := newClient(t, ts, map[string]string{"X-User-Id": "erin"})
	_, body = other.do(http.MethodGet, "/api/v1/draft", nil)
	require.Empty(t, data[map[string]string](t, body)["content"])
}

func TestHTTPServer_DraftRestoreSkipsUnchangedSave(t *testing.T) {
	ts := testserver.New(t)
	ctx := context.Background()
	require.NoError(t, kv.WithPrefix(ts.Store, "draft:user:fay:").Set(ctx, autosave.StorageKey, "carried over"))
	c := newClient(t, ts, map[string]string{"X-User-Id": "fay"})

	_, body := c.do(http.MethodGet, "/api/v1/draft", nil)
	restored := data[struct {
		Content  string `json:"content"`
		Restored bool   `json:"restored"`
	}](t, body)
	require.True(t, restored.Restored)
	require.Equal(t, "carried over", restored.Content)

	resp, body := c.do(http.MethodPut, "/api/v1/draft", map[string]any{"content": "carried over"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.False(t, data[autosave.Status](t, body).Pending)

	_, body = c.do(http.MethodGet, "/api/v1/draft", nil)
	require.Contains(t, string(body), `"restored":false`)
	require.Contains(t, string(body), "carried over")
}

func TestHTTPServer_ConcurrentQuickMemoAdds(t *testing.T) {
	ts := testserver.New(t)

	const workers = 25
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, ts.URL("/api/v1/quick-memos"),
				strings.NewReader(`{"result":"WIN","memo":"race"}`))
			if !assert.NoError(t, err) {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Device-Id", "tablet")
			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			resp.Body.Close()
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
		}()
	}
	wg.Wait()

	tablet := newClient(t, ts, map[string]string{"X-Device-Id": "tablet"})
	_, body := tablet.do(http.MethodGet, "/api/v1/quick-memos", nil)
	require.Len(t, data[[]memo.Memo](t, body), workers)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(r *bufio.Reader, out chan<- sseEvent) {
	defer close(out)
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if ev.name != "" {
				out <- ev
			}
			ev = sseEvent{}
		}
	}
}

func nextMemos(t *testing.T, events <-chan sseEvent) []memo.Memo {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed")
			if ev.name != "memos" {
				continue
			}
			var list []memo.Memo
			require.NoError(t, json.Unmarshal([]byte(ev.data), &list))
			return list
		case <-timeout:
			t.Fatal("timed out waiting for memos event")
			return nil
		}
	}
}

func TestHTTPServer_MemoStream(t *testing.T) {
	ts := testserver.New(t)
	c := newClient(t, ts, map[string]string{"X-User-Id": "frank"})

	_, body := c.do(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "Live"})
	sess := data[session.BattleSession](t, body)
	base := "/api/v1/sessions/" + sess.ID

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL(base+"/memos/stream"), nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Id", "frank")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan sseEvent, 16)
	go readEvents(bufio.NewReader(resp.Body), events)

	require.Empty(t, nextMemos(t, events))

	_, body = c.do(http.MethodPost, base+"/memos", map[string]any{"result": "WIN", "memo": "live one"})
	require.Equal(t, "live one", data[memo.Memo](t, body).Memo)

	list := nextMemos(t, events)
	require.Len(t, list, 1)
	require.Equal(t, "live one", list[0].Memo)
}

func TestHTTPServer_MCPRequiresToken(t *testing.T) {
	ts := testserver.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := ts.Token(t, "mcp-user")
	httpClient := &http.Client{Transport: bearerTransport{token: token}}
	cs, err := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil).
		Connect(ctx, &sdkmcp.StreamableClientTransport{Endpoint: ts.URL("/mcp"), HTTPClient: httpClient}, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "create_session",
		Arguments: map[string]any{"title": "From MCP"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	// The session shows up for the same user over REST.
	c := newClient(t, ts, map[string]string{"Authorization": "Bearer " + token})
	_, body := c.do(http.MethodGet, "/api/v1/sessions", nil)
	sessions := data[[]session.BattleSession](t, body)
	require.Len(t, sessions, 1)
	require.Equal(t, "From MCP", sessions[0].Title)
}

type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}
