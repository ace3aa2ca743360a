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
	"net/http"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/kafka"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

// AsyncDispatcher is passed in to process messages over a streaming system with
// a receipt store. Only used for POST methods, when fly-sync is set to false
type AsyncDispatcher interface {
	ValidateConf() error
	Run() error
	IsInitialized() bool
	DispatchMsgAsync(ctx context.Context, msg map[string]interface{}, ack bool) (*messages.AsyncSentMsg, int, error)
	HandleReceipts(res http.ResponseWriter, req *http.Request, params httprouter.Params)
	Close()
}

// Interface to be implemented by the direct handler and kafka-based handler
type asyncRequestHandler interface {
	validateHandlerConf() error
	dispatchMsg(ctx context.Context, key, msgID string, msg map[string]interface{}, ack bool) (msgAck string, statusCode int, err error)
	run() error
	isInitialized() bool
	close()
}

type asyncDispatcher struct {
	handler      asyncRequestHandler
	receiptStore receipt.ReceiptStore
}

func NewAsyncDispatcher(conf *conf.RESTGatewayConf, processor tx.TxProcessor, receiptstore receipt.ReceiptStore) AsyncDispatcher {
	var handler asyncRequestHandler
	if len(conf.Kafka.Brokers) > 0 {
		handler = newKafkaHandler(conf.Kafka, &kafka.SaramaKafkaFactory{}, processor, receiptstore)
	} else {
		handler = newDirectHandler(conf, processor, receiptstore)
	}

	return &asyncDispatcher{
		handler:      handler,
		receiptStore: receiptstore,
	}
}

func (d *asyncDispatcher) ValidateConf() error {
	return d.handler.validateHandlerConf()
}

// DispatchMsgAsync is the interface method for async dispatching of messages
func (d *asyncDispatcher) DispatchMsgAsync(ctx context.Context, msg map[string]interface{}, ack bool) (*messages.AsyncSentMsg, int, error) {
	return d.processMsg(ctx, msg, ack)
}

func (d *asyncDispatcher) HandleReceipts(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	if params.ByName("id") == "" {
		d.receiptStore.GetReceipts(res, req, params)
	} else {
		d.receiptStore.GetReceipt(res, req, params)
	}
}

func (d *asyncDispatcher) processMsg(ctx context.Context, msg map[string]interface{}, ack bool) (*messages.AsyncSentMsg, int, error) {
	// Check we understand the type, and can get the key.
	// The rest of the validation is performed by the processor
	headers, ok := msg["headers"].(map[string]interface{})
	if !ok {
		return nil, 400, errors.Errorf(errors.RequestHandlerInvalidMsgHeaders)
	}
	msgType, ok := headers["type"].(string)
	if !ok {
		return nil, 400, errors.Errorf(errors.RequestHandlerInvalidMsgTypeMissing)
	}
	if !messages.IsStateChanging(msgType) {
		return nil, 400, errors.Errorf(errors.RequestHandlerInvalidMsgType, msgType)
	}
	// Requests are keyed by card id, so each card's requests stay in order
	key, ok := headers["signer"].(string)
	if !ok || key == "" {
		return nil, 400, errors.Errorf(errors.RequestHandlerInvalidMsgSignerMissing)
	}

	// We always generate the ID. It cannot be set by the user
	msgID := utils.UUIDv4()
	headers["id"] = msgID

	// Pass to the handler
	log.Infof("Request handler accepted message. MsgID: %s Type: %s", msgID, msgType)
	msgAck, status, err := d.handler.dispatchMsg(ctx, key, msgID, msg, ack)
	if err != nil {
		return nil, status, err
	}
	return &messages.AsyncSentMsg{
		Sent:    true,
		Request: msgID,
		Msg:     msgAck,
	}, 200, nil
}

func (d *asyncDispatcher) Run() error {
	return d.handler.run()
}

func (d *asyncDispatcher) IsInitialized() bool {
	return d.handler.isInitialized()
}

func (d *asyncDispatcher) Close() {
	d.handler.close()
}

func marshalRequest(msg map[string]interface{}) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Errorf(errors.RequestHandlerKafkaMsgtoJSON, err)
	}
	return b, nil
}
