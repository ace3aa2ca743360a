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

package async

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	log "github.com/sirupsen/logrus"
)

// msgContext is the TxContext of a request processed asynchronously,
// whichever handler it arrived through. Replies go to the receipt store
type msgContext struct {
	ctx          context.Context
	receipts     receipt.ReceiptStore
	timeReceived time.Time
	msgID        string
	msg          []byte
	headers      messages.CommonHeaders
	reqOffset    string
	onComplete   func()
}

func newMsgContext(ctx context.Context, receipts receipt.ReceiptStore, msgBytes []byte) (*msgContext, error) {
	var common messages.RequestCommon
	if err := json.Unmarshal(msgBytes, &common); err != nil {
		return nil, err
	}
	return &msgContext{
		ctx:          ctx,
		receipts:     receipts,
		timeReceived: time.Now().UTC(),
		msgID:        common.Headers.ID,
		msg:          msgBytes,
		headers:      common.Headers.CommonHeaders,
	}, nil
}

func (t *msgContext) Context() context.Context {
	return t.ctx
}

func (t *msgContext) Headers() *messages.CommonHeaders {
	return &t.headers
}

func (t *msgContext) Unmarshal(msg interface{}) error {
	return json.Unmarshal(t.msg, msg)
}

func (t *msgContext) SendErrorReply(status int, err error) {
	t.SendErrorReplyWithTX(status, err, "")
}

func (t *msgContext) SendErrorReplyWithTX(status int, err error, txID string) {
	log.Warnf("Failed to process message %s: %s", t, err)
	errMsg := messages.NewErrorReply(err, t.msg)
	errMsg.TXHash = txID
	t.Reply(errMsg)
}

func (t *msgContext) Reply(replyMessage messages.ReplyWithHeaders) {
	replyHeaders := replyMessage.ReplyHeaders()
	replyHeaders.ID = utils.UUIDv4()
	replyHeaders.Signer = t.headers.Signer
	replyHeaders.Context = t.headers.Context
	replyHeaders.ReqID = t.msgID
	replyHeaders.ReqOffset = t.reqOffset
	replyHeaders.Received = t.timeReceived.UTC().Format(time.RFC3339Nano)
	replyTime := time.Now().UTC()
	replyHeaders.Elapsed = replyTime.Sub(t.timeReceived).Seconds()
	msgBytes, _ := json.Marshal(replyMessage)
	t.receipts.ProcessReceipt(msgBytes)
	if t.onComplete != nil {
		t.onComplete()
	}
}

func (t *msgContext) String() string {
	return fmt.Sprintf("MsgContext[%s/%s]", t.headers.MsgType, t.msgID)
}
