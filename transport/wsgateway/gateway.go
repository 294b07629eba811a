// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

// Package wsgateway is a demo envelope-transport gateway sitting outside
// the consensus core: it relays gob-encoded scp.SCPEnvelope messages
// between peers over gorilla/websocket connections, the same upgrader
// shape the web package's websocket_shim.go uses.
package wsgateway

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nilsander/ledgerscp/scp"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway holds one websocket connection per peer node and relays
// envelopes between them; it has no opinion on consensus semantics.
type Gateway struct {
	mu    sync.RWMutex
	conns map[scp.NodeID]*websocket.Conn

	// OnEnvelope is called for every envelope received from a peer.
	OnEnvelope func(from scp.NodeID, env scp.SCPEnvelope)
}

func New() *Gateway {
	return &Gateway{conns: make(map[scp.NodeID]*websocket.Conn)}
}

// HandlePeer upgrades the HTTP request to a websocket connection for
// peer, registers it, and runs its read loop until the connection
// closes.
func (g *Gateway) HandlePeer(peer scp.NodeID, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade %s: %w", peer, err)
	}
	g.register(peer, conn)
	defer g.unregister(peer)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var env scp.SCPEnvelope
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
			continue
		}
		if g.OnEnvelope != nil {
			g.OnEnvelope(peer, env)
		}
	}
}

func (g *Gateway) register(peer scp.NodeID, conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[peer] = conn
}

func (g *Gateway) unregister(peer scp.NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, peer)
}

// Unicast sends env to a single peer.
func (g *Gateway) Unicast(peer scp.NodeID, env scp.SCPEnvelope) error {
	g.mu.RLock()
	conn, ok := g.conns[peer]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("wsgateway: no connection to %s", peer)
	}
	return send(conn, env)
}

// Broadcast sends env to every connected peer except from.
func (g *Gateway) Broadcast(from scp.NodeID, env scp.SCPEnvelope) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for peer, conn := range g.conns {
		if peer == from {
			continue
		}
		_ = send(conn, env)
	}
}

func send(conn *websocket.Conn, env scp.SCPEnvelope) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
}
