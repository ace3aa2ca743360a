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

package loyalty

import (
	"context"
	"encoding/json"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/identity"
	log "github.com/sirupsen/logrus"
)

// Network is the set of loyalty operations, each performed on behalf of
// the identity held in the wallet under cardID.
//
// Every call opens its own gateway connection, invokes exactly one
// transaction on the configured channel and contract, and closes the
// connection before returning. State-changing operations return the
// receipt of the committed transaction. Reads return the ledger response
// decoded from JSON. All failures are returned as tagged errors. A
// transaction that committed with a non-valid status returns both its
// receipt and the error
type Network interface {
	RegisterMember(ctx context.Context, cardID string, member *Member) (*fabric.TxReceipt, error)
	RegisterPartner(ctx context.Context, cardID string, partner *Partner) (*fabric.TxReceipt, error)
	EarnPoints(ctx context.Context, cardID string, tx *PointsTransaction) (*fabric.TxReceipt, error)
	UsePoints(ctx context.Context, cardID string, tx *PointsTransaction) (*fabric.TxReceipt, error)
	MemberData(ctx context.Context, cardID, accountNumber string) (interface{}, error)
	PartnerData(ctx context.Context, cardID, partnerID string) (interface{}, error)
	AllPartnersInfo(ctx context.Context, cardID string) (interface{}, error)
	EarnPointsTransactionsInfo(ctx context.Context, cardID, userType, userID string) (interface{}, error)
	UsePointsTransactionsInfo(ctx context.Context, cardID, userType, userID string) (interface{}, error)
}

type network struct {
	conf       *conf.FabricConf
	identities identity.Manager
	connector  fabric.Connector
}

// NewNetwork constructs the loyalty network client
func NewNetwork(fc *conf.FabricConf, identities identity.Manager, connector fabric.Connector) Network {
	return &network{
		conf:       fc,
		identities: identities,
		connector:  connector,
	}
}

func missingPayload(kind, fn string) error {
	return errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerMissingPayload, kind, fn)
}

// RegisterMember onboards the caller identity, then creates the member
func (n *network) RegisterMember(ctx context.Context, cardID string, member *Member) (*fabric.TxReceipt, error) {
	if member == nil {
		return nil, missingPayload("member", FnCreateMember)
	}
	if err := n.identities.Register(ctx, cardID); err != nil {
		return nil, err
	}
	m := *member
	m.Points = 0
	log.Infof("Submit Create Member transaction for %s", m.AccountNumber)
	return n.submit(ctx, cardID, FnCreateMember, &m)
}

// RegisterPartner onboards the caller identity, then creates the partner
func (n *network) RegisterPartner(ctx context.Context, cardID string, partner *Partner) (*fabric.TxReceipt, error) {
	if partner == nil {
		return nil, missingPayload("partner", FnCreatePartner)
	}
	if err := n.identities.Register(ctx, cardID); err != nil {
		return nil, err
	}
	log.Infof("Submit Create Partner transaction for %s", partner.ID)
	return n.submit(ctx, cardID, FnCreatePartner, partner)
}

func (n *network) EarnPoints(ctx context.Context, cardID string, tx *PointsTransaction) (*fabric.TxReceipt, error) {
	if tx == nil {
		return nil, missingPayload("points", FnEarnPoints)
	}
	log.Infof("Submit EarnPoints transaction: %d points for %s from %s", tx.Points, tx.Member, tx.Partner)
	return n.submit(ctx, cardID, FnEarnPoints, tx)
}

func (n *network) UsePoints(ctx context.Context, cardID string, tx *PointsTransaction) (*fabric.TxReceipt, error) {
	if tx == nil {
		return nil, missingPayload("points", FnUsePoints)
	}
	log.Infof("Submit UsePoints transaction: %d points for %s at %s", tx.Points, tx.Member, tx.Partner)
	return n.submit(ctx, cardID, FnUsePoints, tx)
}

func (n *network) MemberData(ctx context.Context, cardID, accountNumber string) (interface{}, error) {
	log.Infof("Get member state for %s", accountNumber)
	return n.evaluate(ctx, cardID, FnGetState, accountNumber)
}

func (n *network) PartnerData(ctx context.Context, cardID, partnerID string) (interface{}, error) {
	log.Infof("Get partner state for %s", partnerID)
	return n.evaluate(ctx, cardID, FnGetState, partnerID)
}

func (n *network) AllPartnersInfo(ctx context.Context, cardID string) (interface{}, error) {
	log.Infof("Get all partners state")
	return n.evaluate(ctx, cardID, FnGetState, AllPartnersKey)
}

func (n *network) EarnPointsTransactionsInfo(ctx context.Context, cardID, userType, userID string) (interface{}, error) {
	log.Infof("Get earn points transactions state for %s %s", userType, userID)
	return n.evaluate(ctx, cardID, FnEarnPointsTransactionsInfo, userType, userID)
}

func (n *network) UsePointsTransactionsInfo(ctx context.Context, cardID, userType, userID string) (interface{}, error) {
	log.Infof("Get use points transactions state for %s %s", userType, userID)
	return n.evaluate(ctx, cardID, FnUsePointsTransactionsInfo, userType, userID)
}

func (n *network) submit(ctx context.Context, cardID, fn string, payload interface{}) (*fabric.TxReceipt, error) {
	arg, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerMarshalArgs, fn, err)
	}
	var receipt *fabric.TxReceipt
	err = n.withContract(ctx, cardID, fn, func(contract fabric.Contract) error {
		result, r, err := contract.Submit(fn, string(arg))
		receipt = r
		if err != nil {
			return err
		}
		if len(result) == 0 {
			return nil
		}
		var response interface{}
		if err := json.Unmarshal(result, &response); err != nil {
			return errors.NewLoyaltyError(errors.KindInvalidResponse, errors.LedgerInvalidResponse, fn, err)
		}
		log.Debugf("%s response: %+v", fn, response)
		return nil
	})
	if err != nil {
		log.Errorf("%s failed for %s: %s", fn, cardID, err)
		return receipt, err
	}
	return receipt, nil
}

func (n *network) evaluate(ctx context.Context, cardID, fn string, args ...string) (interface{}, error) {
	var response interface{}
	err := n.withContract(ctx, cardID, fn, func(contract fabric.Contract) error {
		result, err := contract.Evaluate(fn, args...)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(result, &response); err != nil {
			return errors.NewLoyaltyError(errors.KindInvalidResponse, errors.LedgerInvalidResponse, fn, err)
		}
		return nil
	})
	if err != nil {
		log.Errorf("%s failed for %s: %s", fn, cardID, err)
		return nil, err
	}
	log.Debugf("%s response: %+v", fn, response)
	return response, nil
}

// withContract runs invoke against the contract over a connection that is
// always closed before returning. The SDK calls take no context, so a
// done context is checked before connecting and again before invoking
func (n *network) withContract(ctx context.Context, cardID, fn string, invoke func(contract fabric.Contract) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewLoyaltyError(errors.KindLedgerUnavailable, errors.LedgerContextDone, fn, cardID, err)
	}
	conn, err := n.connector.Connect(cardID)
	if err != nil {
		return err
	}
	defer conn.Close()
	contract, err := conn.Contract(n.conf.Channel, n.conf.Contract)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.NewLoyaltyError(errors.KindLedgerUnavailable, errors.LedgerContextDone, fn, cardID, err)
	}
	return invoke(contract)
}
