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

package tx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/loyalty"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSendConcurrency = 1
)

// TxProcessor interface is called for each message, as is responsible
// for tracking all in-flight messages
type TxProcessor interface {
	OnMessage(TxContext)
	Init(loyalty.Network)
}

var highestID = 1000000

type inflightTx struct {
	id        int
	signer    string
	msgType   string
	started   time.Time
	txContext TxContext
}

func (i *inflightTx) String() string {
	return fmt.Sprintf("ID=%d CTX=%s", i.id, i.txContext.String())
}

type submitFn func(ctx context.Context) (*fabric.TxReceipt, error)

type queryFn func(ctx context.Context) (interface{}, error)

type txProcessor struct {
	maxTXWaitTime    time.Duration
	inflightTxsLock  *sync.Mutex
	inflightTxs      []*inflightTx
	network          loyalty.Network
	config           *conf.RESTGatewayConf
	concurrencySlots chan bool
}

// NewTxProcessor constructor for message procss
func NewTxProcessor(conf *conf.RESTGatewayConf) TxProcessor {
	if conf.SendConcurrency == 0 {
		conf.SendConcurrency = defaultSendConcurrency
	}
	p := &txProcessor{
		inflightTxsLock:  &sync.Mutex{},
		inflightTxs:      []*inflightTx{},
		config:           conf,
		concurrencySlots: make(chan bool, conf.SendConcurrency),
	}
	return p
}

func (p *txProcessor) Init(network loyalty.Network) {
	p.network = network
	p.maxTXWaitTime = time.Duration(p.config.MaxTXWaitTime) * time.Second
}

// OnMessage checks the type and dispatches to the correct logic.
// From this point on the processor MUST ensure a reply is sent on the
// txContext eventually in all scenarios. It cannot return an error
// synchronously from this function
func (p *txProcessor) OnMessage(txContext TxContext) {
	headers := txContext.Headers()
	log.Debugf("Processing %+v", headers)

	msg, known := messages.NewRequest(headers.MsgType)
	if !known {
		txContext.SendErrorReply(400, errors.Errorf(errors.TransactionMsgTypeUnknown, headers.MsgType))
		return
	}
	if err := txContext.Unmarshal(msg); err != nil {
		txContext.SendErrorReply(400, err)
		return
	}
	signer := headers.Signer
	if signer == "" {
		txContext.SendErrorReply(400, errors.Errorf(errors.TransactionMissingSigner))
		return
	}
	if err := auth.Operation(txContext.Context(), headers.MsgType, signer); err != nil {
		txContext.SendErrorReply(401, err)
		return
	}

	n := p.network
	switch m := msg.(type) {
	case *messages.RegisterMember:
		p.submit(txContext, func(ctx context.Context) (*fabric.TxReceipt, error) {
			return n.RegisterMember(ctx, signer, &m.Member)
		})
	case *messages.RegisterPartner:
		p.submit(txContext, func(ctx context.Context) (*fabric.TxReceipt, error) {
			return n.RegisterPartner(ctx, signer, &m.Partner)
		})
	case *messages.PointsRequest:
		if headers.MsgType == messages.MsgTypeEarnPoints {
			p.submit(txContext, func(ctx context.Context) (*fabric.TxReceipt, error) {
				return n.EarnPoints(ctx, signer, &m.PointsTransaction)
			})
		} else {
			p.submit(txContext, func(ctx context.Context) (*fabric.TxReceipt, error) {
				return n.UsePoints(ctx, signer, &m.PointsTransaction)
			})
		}
	case *messages.MemberData:
		p.query(txContext, func(ctx context.Context) (interface{}, error) {
			return n.MemberData(ctx, signer, m.AccountNumber)
		})
	case *messages.PartnerData:
		p.query(txContext, func(ctx context.Context) (interface{}, error) {
			return n.PartnerData(ctx, signer, m.PartnerID)
		})
	case *messages.AllPartners:
		p.query(txContext, func(ctx context.Context) (interface{}, error) {
			return n.AllPartnersInfo(ctx, signer)
		})
	case *messages.TransactionsInfo:
		if headers.MsgType == messages.MsgTypeEarnPointsTransactions {
			p.query(txContext, func(ctx context.Context) (interface{}, error) {
				return n.EarnPointsTransactionsInfo(ctx, signer, m.UserType, m.UserID)
			})
		} else {
			p.query(txContext, func(ctx context.Context) (interface{}, error) {
				return n.UsePointsTransactionsInfo(ctx, signer, m.UserType, m.UserID)
			})
		}
	}
}

func (p *txProcessor) query(txContext TxContext, fn queryFn) {
	result, err := fn(txContext.Context())
	if err != nil {
		txContext.SendErrorReply(errors.StatusOf(err), err)
		return
	}
	var reply messages.QueryResult
	reply.Headers.MsgType = messages.MsgTypeQuerySuccess
	reply.Result = result
	txContext.Reply(&reply)
}

// addInflight puts a submission on the in-flight list, so we can track
// and report on what is outstanding
func (p *txProcessor) addInflight(txContext TxContext) *inflightTx {
	headers := txContext.Headers()
	inflight := &inflightTx{
		txContext: txContext,
		signer:    headers.Signer,
		msgType:   headers.MsgType,
		started:   time.Now().UTC(),
	}

	// Hold the lock just while we're adding it to the list
	p.inflightTxsLock.Lock()
	inflight.id = highestID
	highestID++
	before := len(p.inflightTxs)
	p.inflightTxs = append(p.inflightTxs, inflight)
	p.inflightTxsLock.Unlock()

	log.Infof("In-flight %d added. type=%s signer=%s before=%d", inflight.id, inflight.msgType, inflight.signer, before)
	return inflight
}

// cancelInFlight takes the transaction off the in-flight list once it
// has a final outcome
func (p *txProcessor) cancelInFlight(inflight *inflightTx, submitted bool) {
	var before, after int
	p.inflightTxsLock.Lock()
	before = len(p.inflightTxs)
	for idx, alreadyInflight := range p.inflightTxs {
		if alreadyInflight.id == inflight.id {
			p.inflightTxs = append(p.inflightTxs[0:idx], p.inflightTxs[idx+1:]...)
			break
		}
	}
	after = len(p.inflightTxs)
	p.inflightTxsLock.Unlock()

	log.Infof("In-flight %d complete. signer=%s sub=%t before=%d after=%d", inflight.id, inflight.signer, submitted, before, after)
}

func (p *txProcessor) submit(txContext TxContext, fn submitFn) {
	inflight := p.addInflight(txContext)
	if p.config.SendConcurrency > 1 {
		// Ordering per card id is preserved upstream (Kafka partition key),
		// so the submission to the network can happen at high concurrency
		p.concurrencySlots <- true
		go p.submitAndReply(inflight, fn)
	} else {
		p.submitAndReply(inflight, fn)
	}
}

func (p *txProcessor) submitAndReply(inflight *inflightTx, fn submitFn) {
	txContext := inflight.txContext
	ctx := txContext.Context()
	if p.maxTXWaitTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.maxTXWaitTime)
		defer cancel()
	}

	receipt, err := fn(ctx)
	if p.config.SendConcurrency > 1 {
		<-p.concurrencySlots // return our slot as soon as send is complete, to let an awaiting send go
	}
	p.cancelInFlight(inflight, receipt != nil)

	switch {
	case err != nil && receipt != nil:
		txContext.SendErrorReplyWithTX(errors.StatusOf(err), err, receipt.TransactionID)
	case err != nil:
		txContext.SendErrorReply(errors.StatusOf(err), err)
	default:
		elapsed := time.Now().UTC().Sub(inflight.started)
		log.Infof("Receipt for %s obtained after %.2fs Success=%t", receipt.TransactionID, elapsed.Seconds(), receipt.IsSuccess())
		txContext.Reply(messages.NewTransactionReceipt(receipt))
	}
}
