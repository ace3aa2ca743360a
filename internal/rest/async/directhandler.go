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
	"sync"
	"sync/atomic"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	log "github.com/sirupsen/logrus"
)

type directHandler struct {
	initialized   atomic.Bool
	receipts      receipt.ReceiptStore
	conf          *conf.RESTGatewayConf
	processor     tx.TxProcessor
	inFlightMutex sync.Mutex
	inFlight      map[string]*msgContext
	stopChan      chan error
	closeOnce     sync.Once
}

func newDirectHandler(conf *conf.RESTGatewayConf, processor tx.TxProcessor, receiptstore receipt.ReceiptStore) *directHandler {
	return &directHandler{
		processor: processor,
		receipts:  receiptstore,
		conf:      conf,
		inFlight:  make(map[string]*msgContext),
		stopChan:  make(chan error),
	}
}

// detachContext keeps the caller's authorization, but not the HTTP request
// lifetime, as processing continues after the response is sent
func detachContext(ctx context.Context) context.Context {
	detached := context.Background()
	if authCtx := auth.GetAuthContext(ctx); authCtx != nil {
		detached = context.WithValue(detached, auth.ContextKeyAuthContext, authCtx)
		detached = context.WithValue(detached, auth.ContextKeyAccessToken, auth.GetAccessToken(ctx))
	}
	return detached
}

func (w *directHandler) dispatchMsg(ctx context.Context, key, msgID string, msg map[string]interface{}, ack bool) (string, int, error) {
	msgBytes, err := marshalRequest(msg)
	if err != nil {
		return "", 500, err
	}
	msgContext, err := newMsgContext(detachContext(ctx), w.receipts, msgBytes)
	if err != nil {
		return "", 400, err
	}
	msgContext.onComplete = func() {
		w.inFlightMutex.Lock()
		delete(w.inFlight, msgID)
		w.inFlightMutex.Unlock()
	}

	w.inFlightMutex.Lock()
	numInFlight := len(w.inFlight)
	if numInFlight >= w.conf.MaxInFlight {
		w.inFlightMutex.Unlock()
		log.Errorf("Failed to dispatch mesage from '%s': %d/%d already in-flight", key, numInFlight, w.conf.MaxInFlight)
		return "", 429, errors.Errorf(errors.RequestHandlerDirectTooManyInflight)
	}
	w.inFlight[msgID] = msgContext
	w.inFlightMutex.Unlock()

	go w.processor.OnMessage(msgContext)
	return "", 200, nil
}

func (w *directHandler) validateHandlerConf() error {
	if w.conf.MaxTXWaitTime < 10 {
		if w.conf.MaxTXWaitTime > 0 {
			log.Warnf("Maximum wait time increased from %d to minimum of 10 seconds", w.conf.MaxTXWaitTime)
		}
		w.conf.MaxTXWaitTime = 10
	}
	if w.conf.MaxInFlight <= 0 {
		w.conf.MaxInFlight = 10
	}
	return nil
}

func (w *directHandler) run() error {
	w.initialized.Store(true)
	return <-w.stopChan
}

func (w *directHandler) isInitialized() bool {
	return w.initialized.Load()
}

func (w *directHandler) close() {
	w.closeOnce.Do(func() { close(w.stopChan) })
}
