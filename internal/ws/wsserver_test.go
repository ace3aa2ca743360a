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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func newTestWebSocketServer() (*webSocketServer, *httptest.Server) {
	s := NewWebSocketServer().(*webSocketServer)
	router := httprouter.New()
	router.GET("/ws", s.NewConnection)
	return s, httptest.NewServer(router)
}

func dial(t *testing.T, svr *httptest.Server) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(svr.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	assert.NoError(t, err)
	return conn
}

func waitForListeners(s *webSocketServer, count int) {
	for {
		s.mux.Lock()
		n := len(s.replyMap)
		s.mux.Unlock()
		if n == count {
			return
		}
		time.Sleep(1 * time.Millisecond)
	}
}

func reply(signer string) map[string]interface{} {
	return map[string]interface{}{
		"headers": map[string]interface{}{
			"type":   "TransactionSuccess",
			"signer": signer,
		},
		"transactionID": "tx-" + signer,
	}
}

func TestBroadcastReplies(t *testing.T) {
	assert := assert.New(t)
	s, svr := newTestWebSocketServer()
	defer svr.Close()
	defer s.Close()

	c1 := dial(t, svr)
	c2 := dial(t, svr)
	c1.WriteJSON(&webSocketCommandMessage{Type: "listenReplies"})
	c2.WriteJSON(&webSocketCommandMessage{Type: "listenreplies"})
	waitForListeners(s, 2)

	s.SendReply(reply("card1"))
	for _, c := range []*websocket.Conn{c1, c2} {
		var received map[string]interface{}
		err := c.ReadJSON(&received)
		assert.NoError(err)
		assert.Equal("tx-card1", received["transactionID"])
	}
}

func TestRepliesFilteredBySigner(t *testing.T) {
	assert := assert.New(t)
	s, svr := newTestWebSocketServer()
	defer svr.Close()
	defer s.Close()

	c := dial(t, svr)
	c.WriteJSON(&webSocketCommandMessage{Type: "listenreplies", Signer: "card2"})
	waitForListeners(s, 1)

	r1 := reply("card1")
	s.SendReply(&r1)
	s.SendReply(reply("card2"))

	var received map[string]interface{}
	err := c.ReadJSON(&received)
	assert.NoError(err)
	assert.Equal("tx-card2", received["transactionID"])
}

func TestClientErrorAndUnknownMessages(t *testing.T) {
	assert := assert.New(t)
	s, svr := newTestWebSocketServer()
	defer svr.Close()
	defer s.Close()

	c := dial(t, svr)
	c.WriteJSON(&webSocketCommandMessage{Type: "error", Message: "pop"})
	c.WriteJSON(&webSocketCommandMessage{Type: "shrug"})
	c.WriteJSON(&webSocketCommandMessage{Type: "listenreplies"})
	waitForListeners(s, 1)

	s.SendReply(reply("card1"))
	var received map[string]interface{}
	assert.NoError(c.ReadJSON(&received))
}

func TestBadMessageDisconnects(t *testing.T) {
	s, svr := newTestWebSocketServer()
	defer svr.Close()
	defer s.Close()

	c := dial(t, svr)
	c.WriteMessage(websocket.TextMessage, []byte("!json"))
	for {
		s.mux.Lock()
		n := len(s.connections)
		s.mux.Unlock()
		if n == 0 {
			break
		}
		time.Sleep(1 * time.Millisecond)
	}
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestClientDisconnectRemovesListener(t *testing.T) {
	s, svr := newTestWebSocketServer()
	defer svr.Close()
	defer s.Close()

	c := dial(t, svr)
	c.WriteJSON(&webSocketCommandMessage{Type: "listenreplies"})
	waitForListeners(s, 1)
	c.Close()
	waitForListeners(s, 0)
}

func TestSendReplyAfterClose(t *testing.T) {
	s, svr := newTestWebSocketServer()
	defer svr.Close()

	dial(t, svr)
	s.Close()
	s.Close()
	s.SendReply(reply("card1"))
}

func TestReplySigner(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("", replySigner("not a map"))
	var nilMap *map[string]interface{}
	assert.Equal("", replySigner(nilMap))
	assert.Equal("", replySigner(map[string]interface{}{}))
	assert.Equal("card1", replySigner(reply("card1")))
}

type denyReplies struct{}

func (d *denyReplies) VerifyToken(token string) (interface{}, error) { return token, nil }
func (d *denyReplies) AuthOperation(authCtx interface{}, operation, cardID string) error {
	return nil
}
func (d *denyReplies) AuthListAsyncReplies(authCtx interface{}) error {
	return fmt.Errorf("no replies for you")
}
func (d *denyReplies) AuthReadAsyncReplyByUUID(authCtx interface{}) error { return nil }

func TestNewConnectionUnauthorized(t *testing.T) {
	assert := assert.New(t)
	auth.RegisterSecurityModule(&denyReplies{})
	defer auth.RegisterSecurityModule(nil)
	s := NewWebSocketServer()
	defer s.Close()

	ctx, _ := auth.WithAuthContext(context.Background(), "token")
	req := httptest.NewRequest("GET", "/ws", nil).WithContext(ctx)
	res := httptest.NewRecorder()
	s.NewConnection(res, req, nil)
	assert.Equal(401, res.Code)
	assert.Contains(res.Body.String(), "no replies for you")
}

func TestNewConnectionNotUpgradable(t *testing.T) {
	assert := assert.New(t)
	s := NewWebSocketServer()
	defer s.Close()

	req := httptest.NewRequest("GET", "/ws", nil)
	res := httptest.NewRecorder()
	s.NewConnection(res, req, nil)
	assert.Equal(http.StatusBadRequest, res.Code)
}
