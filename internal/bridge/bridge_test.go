package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// newBridgeServer hosts the bridge behind a real upgrade, the way the HTTP
// adapter does, and hands out its ws URL.
func newBridgeServer(t *testing.T, b *Bridge, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.Run(r.Context(), conn, token, 16000)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recordingDialer struct {
	called int32
	status int // non-zero: fail the handshake with this status
}

func (d *recordingDialer) DialContext(ctx context.Context, urlStr string, h http.Header) (*websocket.Conn, *http.Response, error) {
	atomic.AddInt32(&d.called, 1)
	if d.status != 0 {
		return nil, &http.Response{StatusCode: d.status}, websocket.ErrBadHandshake
	}
	return nil, nil, fmt.Errorf("no upstream configured")
}

func dialClient(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	return client
}

func TestBridge_NoToken_ClosesBeforeDialing(t *testing.T) {
	req := require.New(t)
	dialer := &recordingDialer{}
	b := NewWithDialer("ws://unused", dialer)
	srv := newBridgeServer(t, b, "")

	client := dialClient(t, wsURL(srv))
	_, _, err := client.ReadMessage()

	req.True(websocket.IsCloseError(err, CloseUnauthorized), "got %v", err)
	req.Zero(atomic.LoadInt32(&dialer.called), "upstream must never be contacted")
}

func TestBridge_UpstreamRejection_SurfacesStatus(t *testing.T) {
	req := require.New(t)
	dialer := &recordingDialer{status: http.StatusUnauthorized}
	b := NewWithDialer("ws://unused", dialer)
	srv := newBridgeServer(t, b, "bad-token")

	client := dialClient(t, wsURL(srv))
	_, _, err := client.ReadMessage()

	var closeErr *websocket.CloseError
	req.ErrorAs(err, &closeErr)
	req.Equal(CloseUnauthorized, closeErr.Code)
	req.Contains(closeErr.Text, "401")
	req.EqualValues(1, atomic.LoadInt32(&dialer.called))
}

func TestBridge_RelaysVerbatimBothWays(t *testing.T) {
	req := require.New(t)
	const n = 120

	var (
		mu       sync.Mutex
		upstream []string
	)

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("secret", r.URL.Query().Get("token"))
		req.Equal("16000", r.URL.Query().Get("sample_rate"))

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for i := 0; i < n; i++ {
				if err := conn.WriteMessage(websocket.TextMessage, fmt.Appendf(nil, "up-%03d", i)); err != nil {
					return
				}
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			upstream = append(upstream, string(data))
			mu.Unlock()
		}
	}))
	defer up.Close()

	b := New(wsURL(up))
	srv := newBridgeServer(t, b, "secret")
	client := dialClient(t, wsURL(srv))

	go func() {
		for i := 0; i < n; i++ {
			if err := client.WriteMessage(websocket.BinaryMessage, fmt.Appendf(nil, "cl-%03d", i)); err != nil {
				return
			}
		}
	}()

	var fromUpstream []string
	for len(fromUpstream) < n {
		mt, data, err := client.ReadMessage()
		req.NoError(err)
		req.Equal(websocket.TextMessage, mt)
		fromUpstream = append(fromUpstream, string(data))
	}

	for i, msg := range fromUpstream {
		req.Equal(fmt.Sprintf("up-%03d", i), msg)
	}

	// The upstream side sees every client message, in order, once its read
	// loop ends on session close.
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		got := len(upstream)
		mu.Unlock()
		if got >= n || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	req.Len(upstream, n)
	for i, msg := range upstream {
		req.Equal(fmt.Sprintf("cl-%03d", i), msg)
	}
}

func TestBridge_UpstreamClose_TearsDownClient(t *testing.T) {
	req := require.New(t)

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}))
	defer up.Close()

	b := New(wsURL(up))
	srv := newBridgeServer(t, b, "secret")
	client := dialClient(t, wsURL(srv))

	// The client read must end promptly, not hang on a dead pipe.
	req.NoError(client.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, _, err := client.ReadMessage()
	req.Error(err)
	req.False(strings.Contains(err.Error(), "timeout"), "client was not torn down: %v", err)
}

func TestBridge_ClientClose_TearsDownUpstream(t *testing.T) {
	req := require.New(t)

	upstreamGone := make(chan struct{})
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer close(upstreamGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer up.Close()

	b := New(wsURL(up))
	srv := newBridgeServer(t, b, "secret")
	client := dialClient(t, wsURL(srv))

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
	req.NoError(client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
	client.Close()

	select {
	case <-upstreamGone:
	case <-time.After(3 * time.Second):
		req.Fail("upstream pump still running after client close")
	}
}
