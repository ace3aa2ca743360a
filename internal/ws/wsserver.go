// Copyright 2021 Kaleido

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

// WebSocketChannels is the interface the receipt store uses to push
// replies to connected clients
type WebSocketChannels interface {
	SendReply(message interface{})
}

// WebSocketServer is the full server interface with the init call
type WebSocketServer interface {
	WebSocketChannels
	NewConnection(w http.ResponseWriter, r *http.Request, params httprouter.Params)
	Close()
}

type webSocketServer struct {
	mux          sync.Mutex
	connections  map[string]*webSocketConnection
	replyMap     map[string]*webSocketConnection
	replyChannel chan interface{}
	upgrader     *websocket.Upgrader
	closing      chan struct{}
	closed       bool
	processDone  chan struct{}
}

// NewWebSocketServer create a new server with a simplified interface
func NewWebSocketServer() WebSocketServer {
	s := &webSocketServer{
		connections:  make(map[string]*webSocketConnection),
		replyMap:     make(map[string]*webSocketConnection),
		replyChannel: make(chan interface{}),
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		closing:     make(chan struct{}),
		processDone: make(chan struct{}),
	}
	go s.processReplies()
	return s
}

func (s *webSocketServer) NewConnection(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := auth.ListAsyncReplies(r.Context()); err != nil {
		log.Errorf("Unauthorized WebSocket connection: %s", err)
		errors.RestErrReply(w, r, err, 401)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("WebSocket upgrade failed: %s", err)
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	c := newConnection(s, conn)
	s.connections[c.id] = c
}

func (s *webSocketServer) Close() {
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return
	}
	s.closed = true
	close(s.closing)
	conns := make([]*webSocketConnection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mux.Unlock()

	for _, c := range conns {
		c.close()
	}
	<-s.processDone
}

func (s *webSocketServer) connectionClosed(c *webSocketConnection) {
	s.mux.Lock()
	defer s.mux.Unlock()
	delete(s.connections, c.id)
	delete(s.replyMap, c.id)
}

func (s *webSocketServer) listenReplies(c *webSocketConnection) {
	s.mux.Lock()
	s.replyMap[c.id] = c
	s.mux.Unlock()
}

// SendReply queues a reply for every connection listening for replies.
// Replies are dropped once the server is closing
func (s *webSocketServer) SendReply(message interface{}) {
	select {
	case s.replyChannel <- message:
	case <-s.closing:
		log.Warnf("WebSocket server closing, reply discarded")
	}
}

func (s *webSocketServer) processReplies() {
	defer close(s.processDone)
	for {
		select {
		case reply := <-s.replyChannel:
			signer := replySigner(reply)
			s.mux.Lock()
			wsconns := make([]*webSocketConnection, 0, len(s.replyMap))
			for _, c := range s.replyMap {
				if c.wantsReply(signer) {
					wsconns = append(wsconns, c)
				}
			}
			s.mux.Unlock()
			for _, c := range wsconns {
				select {
				case c.broadcast <- reply:
				case <-c.closing:
				}
			}
		case <-s.closing:
			return
		}
	}
}

// replySigner extracts headers.signer from a reply, as stored in the receipt store
func replySigner(reply interface{}) string {
	var m map[string]interface{}
	switch r := reply.(type) {
	case map[string]interface{}:
		m = r
	case *map[string]interface{}:
		if r != nil {
			m = *r
		}
	}
	if m == nil {
		return ""
	}
	return utils.GetMapString(utils.GetMapMap(m, "headers"), "signer")
}
