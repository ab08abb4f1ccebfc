package session

import (
	"context"
	"log"
	"time"
)

// connect starts a dial sequence if the worker wants to be online and no
// connection or dial is already in flight. Loop-only.
func (a *Agent) connect() {
	if !a.store.Online() || a.connecting || a.conn != nil {
		return
	}
	a.connecting = true
	a.setState(StateConnecting)
	go a.dial()
}

// dial fetches a realtime token and opens the gateway connection. Runs off
// the loop; its outcome is posted back through connResults.
func (a *Agent) dial() {
	ctx, cancel := context.WithTimeout(context.Background(), a.dialTimeout)
	defer cancel()

	token, err := a.backend.RealtimeToken(ctx)
	if err != nil {
		a.postConnResult(connResult{err: err})
		return
	}

	conn, err := a.dialer.Dial(ctx, a.wsURL, token)
	if err != nil {
		a.postConnResult(connResult{err: err})
		return
	}
	a.postConnResult(connResult{conn: conn})
}

func (a *Agent) postConnResult(res connResult) {
	select {
	case a.connResults <- res:
	case <-a.done:
		if res.conn != nil {
			res.conn.Close()
		}
	}
}

// handleConnResult finishes a dial sequence. Loop-only.
func (a *Agent) handleConnResult(res connResult) {
	a.connecting = false

	if res.err != nil {
		log.Printf("session: connect: %v", res.err)
		a.setState(StateDisconnected)
		if a.store.Online() {
			// The first dial failure of a connect cycle waits the auth
			// delay; later ones the shorter close delay. The cycle ends on
			// a successful connect or the intent flipping off.
			delay := a.authRetryDelay
			if a.dialFailed {
				delay = a.closeRetryDelay
			}
			a.dialFailed = true
			a.scheduleRetry(delay)
		}
		return
	}

	// Intent flipped to offline while the dial was in flight: the fresh
	// connection is unwanted.
	if !a.store.Online() {
		res.conn.Close()
		a.setState(StateDisconnected)
		return
	}

	a.cancelRetry()
	a.dialFailed = false
	a.conn = res.conn
	a.inbound = res.conn.Inbound()
	a.setState(StateConnected)
	a.clearDisconnectNotice()
}

// transportClosed handles the inbound channel closing underneath us.
// Loop-only.
func (a *Agent) transportClosed() {
	a.conn = nil
	a.inbound = nil
	a.setState(StateDisconnected)

	if !a.store.Online() {
		return
	}
	log.Printf("session: gateway connection lost, retrying in %s", a.closeRetryDelay)
	a.notifyDisconnected()
	a.scheduleRetry(a.closeRetryDelay)
}

// scheduleRetry arms a single retry timer. An existing timer is left
// alone so overlapping failures do not push the retry further out.
func (a *Agent) scheduleRetry(d time.Duration) {
	if a.retryTimer != nil {
		return
	}
	a.retryTimer = time.AfterFunc(d, func() {
		a.do(func() {
			a.retryTimer = nil
			a.connect()
		})
	})
}

func (a *Agent) cancelRetry() {
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
	}
}

func (a *Agent) notifyDisconnected() {
	if a.disconnectNotified {
		return
	}
	a.disconnectNotified = true
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusPushTimeout)
		defer cancel()
		if err := a.notifier.Disconnected(ctx); err != nil {
			log.Printf("session: disconnect notice: %v", err)
		}
	}()
}

func (a *Agent) clearDisconnectNotice() {
	if !a.disconnectNotified {
		return
	}
	a.disconnectNotified = false
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusPushTimeout)
		defer cancel()
		if err := a.notifier.ClearDisconnected(ctx); err != nil {
			log.Printf("session: clear disconnect notice: %v", err)
		}
	}()
}

// heartbeat sends the current position over the gateway. Skipped while
// disconnected or before the first fix arrives; send failures are left to
// the read pump to surface as a closed connection.
func (a *Agent) heartbeat() {
	if a.state != StateConnected || a.conn == nil {
		return
	}
	pos, ok := a.location.Current()
	if !ok {
		return
	}
	frame := locationFrame{
		Type:      frameLocation,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
	}
	if j := a.store.Active(); j != nil {
		id := j.ID
		frame.JobID = &id
	}
	if err := a.conn.Send(frame); err != nil {
		log.Printf("session: heartbeat: %v", err)
	}
}

func (a *Agent) setState(s ConnState) {
	if a.state == s {
		return
	}
	a.state = s
	a.emit(Event{Type: EventConnection, State: s})
}

// Reconnect forces an immediate connection attempt, collapsing any armed
// retry timer. A no-op when already connected or mid-dial, or when Run has
// stopped.
func (a *Agent) Reconnect() {
	a.do(func() {
		if a.state == StateConnected || a.connecting {
			return
		}
		a.cancelRetry()
		a.connect()
	})
}
