// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package wsgateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nilsander/ledgerscp/scp"
)

// TestGatewayRelaysEnvelope drives a real websocket connection end to
// end: HandlePeer upgrades an incoming request, Unicast sends a gob
// envelope over the wire to the client, and an envelope the client sends
// back is decoded by HandlePeer's read loop and handed to OnEnvelope.
func TestGatewayRelaysEnvelope(t *testing.T) {
	g := New()
	received := make(chan scp.SCPEnvelope, 1)
	g.OnEnvelope = func(from scp.NodeID, env scp.SCPEnvelope) {
		received <- env
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.HandlePeer("peer1", w, r); err != nil {
			t.Errorf("HandlePeer: %v", err)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give HandlePeer's goroutine time to register the connection
	// before Unicast looks it up.
	time.Sleep(10 * time.Millisecond)

	want := scp.SCPEnvelope{Statement: scp.SCPStatement{NodeID: "local", SlotIndex: 1, Phase: scp.PhasePrepare}}
	if err := g.Unicast("peer1", want); err != nil {
		t.Fatalf("unicast: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty relayed message")
	}

	// Send something back so HandlePeer's read loop decodes it and
	// dispatches to OnEnvelope.
	back := scp.SCPEnvelope{Statement: scp.SCPStatement{NodeID: "peer1", SlotIndex: 1, Phase: scp.PhaseConfirm}}
	if err := send(conn, back); err != nil {
		t.Fatalf("send back: %v", err)
	}

	select {
	case got := <-received:
		if got.Statement.NodeID != "peer1" || got.Statement.Phase != scp.PhaseConfirm {
			t.Fatalf("unexpected envelope: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnEnvelope")
	}
}

// TestGatewayUnicastUnknownPeer confirms Unicast fails cleanly for a
// peer that never connected rather than panicking on a nil conn.
func TestGatewayUnicastUnknownPeer(t *testing.T) {
	g := New()
	if err := g.Unicast("ghost", scp.SCPEnvelope{}); err == nil {
		t.Fatal("expected error for unknown peer")
	}
}
