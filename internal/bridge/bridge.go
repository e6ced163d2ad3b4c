// Package bridge pairs a client WebSocket with an upstream realtime
// transcription WebSocket and copies messages verbatim in both directions
// until either side closes. It never parses the payloads.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// CloseUnauthorized mirrors the upstream proxy contract: missing or
	// rejected tokens close the client with 4001.
	CloseUnauthorized = 4001

	closeGrace = time.Second
)

// Dialer opens the upstream leg. Production uses gorilla's default dialer;
// tests substitute one pointed at an in-process server.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Bridge struct {
	upstreamURL string // base ws(s) URL without query
	dialer      Dialer
}

func New(upstreamURL string) *Bridge {
	return &Bridge{upstreamURL: upstreamURL, dialer: websocket.DefaultDialer}
}

// NewWithDialer is for tests.
func NewWithDialer(upstreamURL string, d Dialer) *Bridge {
	return &Bridge{upstreamURL: upstreamURL, dialer: d}
}

// Run relays between an already-upgraded client connection and the upstream
// service, blocking until the session ends. Both connections are closed on
// return. The token is validated for presence only; the upstream owns
// authentication and its verdict is surfaced as the client close code.
func (b *Bridge) Run(ctx context.Context, client *websocket.Conn, token string, sampleRate int) {
	defer client.Close()

	if token == "" {
		log.Warn().Str("module", "bridge").Msg("rejecting session without token")
		closeWith(client, CloseUnauthorized, "Not authorized: Token not provided.")
		return
	}

	target := fmt.Sprintf("%s?sample_rate=%d&token=%s", b.upstreamURL, sampleRate, url.QueryEscape(token))
	upstream, resp, err := b.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			log.Error().Err(err).Str("module", "bridge").Int("status", resp.StatusCode).Msg("upstream handshake rejected")
			closeWith(client, CloseUnauthorized, fmt.Sprintf("upstream authorization failed: %d", resp.StatusCode))
		} else {
			log.Error().Err(err).Str("module", "bridge").Msg("upstream unreachable")
			closeWith(client, websocket.CloseInternalServerErr, "internal error: upstream unreachable")
		}
		return
	}
	defer upstream.Close()

	log.Info().Str("module", "bridge").Int("sample_rate", sampleRate).Msg("session established")

	// One pump per direction; whichever stops first ends the session.
	// Closing both sockets on return unblocks the surviving pump.
	errc := make(chan error, 2)
	go pump(client, upstream, errc)
	go pump(upstream, client, errc)

	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if isExpectedClose(err) {
		log.Info().Str("module", "bridge").Msg("session closed")
		return
	}
	log.Error().Err(err).Str("module", "bridge").Msg("session failed")
	closeWith(client, websocket.CloseInternalServerErr, "internal error: "+err.Error())
}

// pump copies messages from src to dst, preserving type and order.
func pump(src, dst *websocket.Conn, errc chan<- error) {
	for {
		mt, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(mt, data); err != nil {
			errc <- err
			return
		}
	}
}

func isExpectedClose(err error) bool {
	if err == nil || err == context.Canceled {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

// closeWith sends a close frame; reasons are clipped to fit the 125-byte
// control-frame limit.
func closeWith(c *websocket.Conn, code int, reason string) {
	if len(reason) > 120 {
		reason = reason[:120]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(closeGrace)
	if err := c.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Debug().Err(err).Str("module", "bridge").Msg("close frame not delivered")
	}
}
