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

package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"

	log "github.com/sirupsen/logrus"
)

// SyncDispatcher abstracts the processing of the transactions and queries
// synchronously. We perform those within this package.
type SyncDispatcher interface {
	DispatchMsgSync(ctx context.Context, res http.ResponseWriter, req *http.Request, msg map[string]interface{})
}

type syncDispatcher struct {
	processor tx.TxProcessor
}

func NewSyncDispatcher(processor tx.TxProcessor) SyncDispatcher {
	return &syncDispatcher{
		processor: processor,
	}
}

type syncTxInflight struct {
	ctx            context.Context
	replyProcessor *syncResponder
	timeReceived   time.Time
	headers        messages.CommonHeaders
	msg            []byte
}

func (t *syncTxInflight) Context() context.Context {
	return t.ctx
}

func (t *syncTxInflight) Headers() *messages.CommonHeaders {
	return &t.headers
}

func (t *syncTxInflight) Unmarshal(msg interface{}) error {
	return json.Unmarshal(t.msg, msg)
}

func (t *syncTxInflight) SendErrorReply(status int, err error) {
	t.replyProcessor.ReplyWithError(status, err)
}

func (t *syncTxInflight) SendErrorReplyWithTX(status int, err error, txID string) {
	t.SendErrorReply(status, errors.Errorf(errors.RESTGatewaySyncWrapErrorWithTXDetail, txID, err))
}

func (t *syncTxInflight) Reply(replyMessage messages.ReplyWithHeaders) {
	headers := t.Headers()
	replyHeaders := replyMessage.ReplyHeaders()
	replyHeaders.ID = utils.UUIDv4()
	replyHeaders.Signer = headers.Signer
	replyHeaders.Context = headers.Context
	replyHeaders.ReqID = headers.ID
	replyHeaders.Received = t.timeReceived.UTC().Format(time.RFC3339Nano)
	replyTime := time.Now().UTC()
	replyHeaders.Elapsed = replyTime.Sub(t.timeReceived).Seconds()
	t.replyProcessor.ReplyWithReceipt(replyMessage)
}

func (t *syncTxInflight) String() string {
	headers := t.Headers()
	return fmt.Sprintf("MsgContext[%s/%s]", headers.MsgType, headers.ID)
}

type syncResponder struct {
	res    http.ResponseWriter
	req    *http.Request
	done   bool
	waiter *sync.Cond
}

func (i *syncResponder) complete() {
	i.waiter.L.Lock()
	i.done = true
	i.waiter.Broadcast()
	i.waiter.L.Unlock()
}

func (i *syncResponder) ReplyWithError(status int, err error) {
	errors.RestErrReply(i.res, i.req, err, status)
	i.complete()
}

func (i *syncResponder) ReplyWithReceipt(receipt messages.ReplyWithHeaders) {
	status := 200
	if receipt.ReplyHeaders().MsgType != messages.MsgTypeTransactionSuccess && receipt.ReplyHeaders().MsgType != messages.MsgTypeQuerySuccess {
		status = 500
	}
	reply, _ := json.MarshalIndent(receipt, "", "  ")
	log.Infof("<-- %s %s [%d]", i.req.Method, i.req.URL, status)
	log.Debugf("<-- %s", reply)
	i.res.Header().Set("Content-Type", "application/json")
	i.res.WriteHeader(status)
	_, _ = i.res.Write(reply)
	i.complete()
}

func (d *syncDispatcher) DispatchMsgSync(ctx context.Context, res http.ResponseWriter, req *http.Request, msg map[string]interface{}) {
	responder := &syncResponder{
		res:    res,
		req:    req,
		done:   false,
		waiter: sync.NewCond(&sync.Mutex{}),
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		responder.ReplyWithError(400, err)
		return
	}
	syncCtx := &syncTxInflight{
		replyProcessor: responder,
		timeReceived:   time.Now().UTC(),
		msg:            msgBytes,
		ctx:            ctx,
	}
	var common messages.RequestCommon
	_ = json.Unmarshal(msgBytes, &common)
	syncCtx.headers = common.Headers.CommonHeaders
	syncCtx.headers.ID = utils.UUIDv4()

	d.processor.OnMessage(syncCtx)
	responder.waiter.L.Lock()
	for !responder.done {
		responder.waiter.Wait()
	}
	responder.waiter.L.Unlock()
}
