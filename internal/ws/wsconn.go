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
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	log "github.com/sirupsen/logrus"
)

type webSocketConnection struct {
	id           string
	server       *webSocketServer
	conn         *websocket.Conn
	mux          sync.Mutex
	closed       bool
	signerFilter string
	broadcast    chan interface{}
	closing      chan struct{}
}

type webSocketCommandMessage struct {
	Type    string `json:"type,omitempty"`
	Signer  string `json:"signer,omitempty"`
	Message string `json:"message,omitempty"`
}

func newConnection(server *webSocketServer, conn *websocket.Conn) *webSocketConnection {
	wsc := &webSocketConnection{
		id:        utils.UUIDv4(),
		server:    server,
		conn:      conn,
		broadcast: make(chan interface{}),
		closing:   make(chan struct{}),
	}
	go wsc.listen()
	go wsc.sender()
	return wsc
}

func (c *webSocketConnection) close() {
	c.mux.Lock()
	if !c.closed {
		c.closed = true
		c.conn.Close()
		close(c.closing)
	}
	c.mux.Unlock()

	c.server.connectionClosed(c)
	log.Infof("WS/%s: Disconnected", c.id)
}

func (c *webSocketConnection) sender() {
	defer c.close()
	for {
		select {
		case message := <-c.broadcast:
			if err := c.conn.WriteJSON(message); err != nil {
				log.Errorf("WS/%s: Send failed: %s", c.id, err)
				return
			}
		case <-c.closing:
			log.Infof("WS/%s: Closing", c.id)
			return
		}
	}
}

// wantsReply is true when the connection listens for replies to all
// signers, or to the one signer the reply was sent as
func (c *webSocketConnection) wantsReply(signer string) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.signerFilter == "" || c.signerFilter == signer
}

func (c *webSocketConnection) listenReplies(signer string) {
	c.mux.Lock()
	c.signerFilter = signer
	c.mux.Unlock()
	c.server.listenReplies(c)
}

func (c *webSocketConnection) listen() {
	defer c.close()
	log.Infof("WS/%s: Connected", c.id)
	for {
		var msg webSocketCommandMessage
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			log.Errorf("WS/%s: Error: %s", c.id, err)
			return
		}
		if err = json.Unmarshal(message, &msg); err != nil {
			log.Errorf("WS/%s: Unable to parse message: %s", c.id, err)
			return
		}
		log.Debugf("WS/%s: Received: %+v", c.id, msg)

		switch strings.ToLower(msg.Type) {
		case "listenreplies":
			c.listenReplies(msg.Signer)
		case "error":
			log.Errorf("WS/%s: %s", c.id, errors.Errorf(errors.WebSocketErrorFromClient, msg.Message))
		default:
			log.Errorf("WS/%s: Unexpected message type: %+v", c.id, msg)
		}
	}
}
