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

package receipt

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt/api"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/ws"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

const (
	defaultReceiptLimit      = 10
	defaultRetryTimeout      = 120 * 1000
	defaultRetryInitialDelay = 500
	backoffFactor            = 1.1
)

// ReceiptStore records every reply, and serves them back over REST
type ReceiptStore interface {
	ValidateConf() error
	Init(ws.WebSocketChannels, ...api.ReceiptStorePersistence) error
	ProcessReceipt(msgBytes []byte)
	GetReceipts(res http.ResponseWriter, req *http.Request, params httprouter.Params)
	GetReceipt(res http.ResponseWriter, req *http.Request, params httprouter.Params)
	Close()
}

type receiptStore struct {
	config      *conf.ReceiptsDBConf
	persistence api.ReceiptStorePersistence
	ws          ws.WebSocketChannels
}

// NewReceiptStore picks the persistence from the config: LevelDB, then
// MongoDB, then PostgreSQL, falling back to memory
func NewReceiptStore(config *conf.RESTGatewayConf) ReceiptStore {
	var persistence api.ReceiptStorePersistence
	switch {
	case config.Receipts.LevelDB.Path != "":
		persistence = newLevelDBReceipts(&config.Receipts)
	case config.Receipts.MongoDB.URL != "":
		persistence = newMongoReceipts(&config.Receipts)
	case config.Receipts.PostgreSQL.DSN != "":
		persistence = newPostgresReceipts(&config.Receipts)
	default:
		persistence = newMemoryReceipts(&config.Receipts)
	}
	return &receiptStore{
		config:      &config.Receipts,
		persistence: persistence,
	}
}

func (r *receiptStore) ValidateConf() error {
	if r.config.RetryTimeoutMS <= 0 {
		r.config.RetryTimeoutMS = defaultRetryTimeout
	}
	if r.config.RetryInitialDelayMS <= 0 {
		r.config.RetryInitialDelayMS = defaultRetryInitialDelay
	}
	return r.persistence.ValidateConf()
}

// Init connects the persistence. A persistence passed in replaces the
// configured one
func (r *receiptStore) Init(wsChannels ws.WebSocketChannels, persistence ...api.ReceiptStorePersistence) error {
	r.ws = wsChannels
	if len(persistence) > 0 {
		r.persistence = persistence[0]
	}
	return r.persistence.Init()
}

func (r *receiptStore) extractHeaders(parsedMsg map[string]interface{}) map[string]interface{} {
	return utils.GetMapMap(parsedMsg, "headers")
}

// ProcessReceipt stores a reply keyed by the id of the request it
// answers, and broadcasts it to WebSocket listeners
func (r *receiptStore) ProcessReceipt(msgBytes []byte) {
	var parsedMsg map[string]interface{}
	if err := json.Unmarshal(msgBytes, &parsedMsg); err != nil {
		log.Errorf("Unable to unmarshal reply message '%s' as JSON: %s", string(msgBytes), err)
		return
	}

	headers := r.extractHeaders(parsedMsg)
	if headers == nil {
		log.Errorf("Failed to extract request headers from '%+v'", parsedMsg)
		return
	}

	requestID := utils.GetMapString(headers, "requestId")
	if requestID == "" {
		log.Errorf("Failed to extract headers.requestId from '%+v'", parsedMsg)
		return
	}
	reqOffset := utils.GetMapString(headers, "requestOffset")
	msgType := utils.GetMapString(headers, "type")
	signer := utils.GetMapString(headers, "signer")
	var result string
	switch msgType {
	case messages.MsgTypeError:
		result = utils.GetMapString(parsedMsg, "errorMessage")
	case messages.MsgTypeQuerySuccess:
		result = "query"
	default:
		result = utils.GetMapString(parsedMsg, "transactionID")
	}
	log.Infof("Received reply message. requestId='%s' reqOffset='%s' type='%s' signer='%s': %s", requestID, reqOffset, msgType, signer, result)

	parsedMsg["receivedAt"] = time.Now().UnixNano() / int64(time.Millisecond)
	parsedMsg["_id"] = requestID
	r.writeReceipt(requestID, &parsedMsg)

	if r.ws != nil {
		r.ws.SendReply(parsedMsg)
	}
}

// writeReceipt retries with a backoff, to ride out transient storage
// failures. Giving up loses the reply, so it panics
func (r *receiptStore) writeReceipt(requestID string, receipt *map[string]interface{}) {
	startTime := time.Now()
	delay := time.Duration(r.config.RetryInitialDelayMS) * time.Millisecond
	timeout := time.Duration(r.config.RetryTimeoutMS) * time.Millisecond
	for {
		err := r.persistence.AddReceipt(requestID, receipt)
		if err == nil {
			return
		}
		if existing, qErr := r.persistence.GetReceipt(requestID); qErr == nil && existing != nil {
			log.Warnf("Failed to insert receipt, as it already exists for requestId=%s: %s", requestID, err)
			return
		}
		if time.Since(startTime) > timeout {
			log.Panicf("Failed to insert receipt after %.2fs for requestId=%s: %s", time.Since(startTime).Seconds(), requestID, err)
		}
		log.Errorf("Failed to insert receipt for requestId=%s (retrying in %.2fs): %s", requestID, delay.Seconds(), err)
		time.Sleep(delay)
		delay = time.Duration(float64(delay) * backoffFactor)
	}
}

func (r *receiptStore) marshalAndReply(res http.ResponseWriter, req *http.Request, result interface{}) {
	resBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("Error serializing receipts: %s", err)
		errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreSerializeResponse), 500)
		return
	}
	status := 200
	log.Infof("<-- %s %s [%d]", req.Method, req.URL, status)
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(resBytes)
}

// GetReceipts handles a HTTP request for recent replies, newest first
func (r *receiptStore) GetReceipts(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	log.Infof("--> %s %s", req.Method, req.URL)

	if err := auth.ListAsyncReplies(req.Context()); err != nil {
		log.Errorf("Error querying replies: %s", err)
		errors.RestErrReply(res, req, errors.Errorf(errors.Unauthorized), 401)
		return
	}

	_ = req.ParseForm()

	// The limit is unbounded when looking up specific IDs
	limit := defaultReceiptLimit
	var ids []string
	if idParams, ok := req.Form["id"]; ok {
		ids = idParams
		limit = 0
	}

	if limitStr := req.FormValue("limit"); limitStr != "" {
		customLimit, err := strconv.ParseInt(limitStr, 10, 32)
		if err != nil {
			log.Errorf("Invalid limit value: %s", err)
			errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreInvalidRequestBadLimit), 400)
			return
		}
		if int(customLimit) > r.config.QueryLimit {
			log.Errorf("Invalid limit value: %d", customLimit)
			errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreInvalidRequestMaxLimit, r.config.QueryLimit), 400)
			return
		}
		if customLimit > 0 {
			limit = int(customLimit)
		}
	}

	var skip int
	if skipStr := req.FormValue("skip"); skipStr != "" {
		skipI64, err := strconv.ParseInt(skipStr, 10, 32)
		if err != nil || skipI64 < 0 {
			log.Errorf("Invalid skip value: %s", skipStr)
			errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreInvalidRequestBadSkip), 400)
			return
		}
		skip = int(skipI64)
	}

	var sinceEpochMS int64
	if since := req.FormValue("since"); since != "" {
		if isoTime, err := time.Parse(time.RFC3339Nano, since); err == nil {
			sinceEpochMS = isoTime.UnixNano() / int64(time.Millisecond)
		} else if sinceEpochMS, err = strconv.ParseInt(since, 10, 64); err != nil {
			log.Errorf("since '%s' cannot be parsed as RFC3339 or millisecond timestamp: %s", since, err)
			errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreInvalidRequestBadSince), 400)
			return
		}
	}

	results, err := r.persistence.GetReceipts(skip, limit, ids, sinceEpochMS, req.FormValue("signer"))
	if err != nil {
		log.Errorf("Error querying replies: %s", err)
		errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreFailedQuery, err), 500)
		return
	}
	log.Debugf("Replies query: skip=%d limit=%d replies=%d", skip, limit, len(*results))
	r.marshalAndReply(res, req, results)
}

// GetReceipt handles a HTTP request for an individual reply
func (r *receiptStore) GetReceipt(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	log.Infof("--> %s %s", req.Method, req.URL)

	if err := auth.ReadAsyncReplyByUUID(req.Context()); err != nil {
		log.Errorf("Error querying reply: %s", err)
		errors.RestErrReply(res, req, errors.Errorf(errors.Unauthorized), 401)
		return
	}

	requestID := params.ByName("id")
	result, err := r.persistence.GetReceipt(requestID)
	if err != nil {
		log.Errorf("Error querying reply: %s", err)
		errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreFailedQuerySingle, err), 500)
		return
	} else if result == nil {
		errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreFailedNotFound), 404)
		log.Infof("Reply not found")
		return
	}
	log.Infof("Reply found")
	r.marshalAndReply(res, req, result)
}

func (r *receiptStore) Close() {
	r.persistence.Close()
}
