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

package messages

import (
	"encoding/json"
	"reflect"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/loyalty"
)

// Types of messages that loyaltyconnect internally posts to the message queue (kafka)
// as well as those that it sends back to the client
const (
	// MsgTypeError - an error
	MsgTypeError = "Error"

	MsgTypeRegisterMember         = "RegisterMember"
	MsgTypeRegisterPartner        = "RegisterPartner"
	MsgTypeEarnPoints             = "EarnPoints"
	MsgTypeUsePoints              = "UsePoints"
	MsgTypeMemberData             = "MemberData"
	MsgTypePartnerData            = "PartnerData"
	MsgTypeAllPartners            = "AllPartners"
	MsgTypeEarnPointsTransactions = "EarnPointsTransactions"
	MsgTypeUsePointsTransactions  = "UsePointsTransactions"

	MsgTypeTransactionSuccess = "TransactionSuccess"
	MsgTypeTransactionFailure = "TransactionFailure"
	MsgTypeQuerySuccess       = "QuerySuccess"
	// RecordHeaderAccessToken - record header name for passing JWT token over messaging
	RecordHeaderAccessToken = "fly-accesstoken"
)

// IsStateChanging reports whether a request type submits a transaction,
// and so may be dispatched asynchronously
func IsStateChanging(msgType string) bool {
	switch msgType {
	case MsgTypeRegisterMember, MsgTypeRegisterPartner, MsgTypeEarnPoints, MsgTypeUsePoints:
		return true
	default:
		return false
	}
}

// AsyncSentMsg is a standard response for async requests
type AsyncSentMsg struct {
	Sent    bool   `json:"sent"`
	Request string `json:"id"`
	Msg     string `json:"msg,omitempty"`
}

// CommonHeaders are common to all messages. Signer is the card id of the
// wallet identity the operation is performed as
type CommonHeaders struct {
	ID      string                 `json:"id,omitempty"`
	MsgType string                 `json:"type,omitempty"`
	Signer  string                 `json:"signer,omitempty"`
	Context map[string]interface{} `json:"ctx,omitempty"`
}

// RequestHeaders are common to all requests
type RequestHeaders struct {
	CommonHeaders
}

// ReplyHeaders are common to all replies
type ReplyHeaders struct {
	CommonHeaders
	Received  string  `json:"timeReceived"`
	Elapsed   float64 `json:"timeElapsed"`
	ReqOffset string  `json:"requestOffset"`
	ReqID     string  `json:"requestId"`
}

// RequestCommon is a common interface to all requests
type RequestCommon struct {
	Headers RequestHeaders `json:"headers"`
}

// RequestHeaders returns the request headers
func (r *RequestCommon) RequestHeaders() *RequestHeaders {
	return &r.Headers
}

// RequestWithHeaders gives common access to the request headers
type RequestWithHeaders interface {
	RequestHeaders() *RequestHeaders
}

// ReplyCommon is a common interface to all replies
type ReplyCommon struct {
	Headers ReplyHeaders `json:"headers"`
}

// ReplyWithHeaders gives common access the reply headers
type ReplyWithHeaders interface {
	ReplyHeaders() *ReplyHeaders
}

// ReplyHeaders returns the reply headers
func (r *ReplyCommon) ReplyHeaders() *ReplyHeaders {
	return &r.Headers
}

// RegisterMember onboards a member, and the caller identity with it
type RegisterMember struct {
	RequestCommon
	loyalty.Member
}

// RegisterPartner onboards a partner, and the caller identity with it
type RegisterPartner struct {
	RequestCommon
	loyalty.Partner
}

// PointsRequest is used for both the EarnPoints and UsePoints types
type PointsRequest struct {
	RequestCommon
	loyalty.PointsTransaction
}

type MemberData struct {
	RequestCommon
	AccountNumber string `json:"accountNumber"`
}

type PartnerData struct {
	RequestCommon
	PartnerID string `json:"partnerId"`
}

type AllPartners struct {
	RequestCommon
}

// TransactionsInfo is used for both the EarnPointsTransactions and
// UsePointsTransactions types
type TransactionsInfo struct {
	RequestCommon
	UserType string `json:"userType"`
	UserID   string `json:"userId"`
}

// NewRequest returns an empty request of the given type, ready to be
// unmarshaled into
func NewRequest(msgType string) (RequestWithHeaders, bool) {
	switch msgType {
	case MsgTypeRegisterMember:
		return &RegisterMember{}, true
	case MsgTypeRegisterPartner:
		return &RegisterPartner{}, true
	case MsgTypeEarnPoints, MsgTypeUsePoints:
		return &PointsRequest{}, true
	case MsgTypeMemberData:
		return &MemberData{}, true
	case MsgTypePartnerData:
		return &PartnerData{}, true
	case MsgTypeAllPartners:
		return &AllPartners{}, true
	case MsgTypeEarnPointsTransactions, MsgTypeUsePointsTransactions:
		return &TransactionsInfo{}, true
	default:
		return nil, false
	}
}

type QueryResult struct {
	ReplyCommon
	Result interface{} `json:"result"`
}

// TransactionReceipt is sent when a transaction has been committed
type TransactionReceipt struct {
	ReplyCommon
	BlockNumber   uint64 `json:"blockNumber"`
	SignerMSP     string `json:"signerMSP"`
	Signer        string `json:"signer"`
	Channel       string `json:"channel"`
	Contract      string `json:"contract"`
	Function      string `json:"function"`
	TransactionID string `json:"transactionID"`
	Status        string `json:"status"`
}

// NewTransactionReceipt builds the reply for a committed transaction
func NewTransactionReceipt(r *fabric.TxReceipt) *TransactionReceipt {
	reply := &TransactionReceipt{
		BlockNumber:   r.BlockNumber,
		SignerMSP:     r.SignerMSP,
		Signer:        r.Signer,
		Channel:       r.Channel,
		Contract:      r.Contract,
		Function:      r.Function,
		TransactionID: r.TransactionID,
		Status:        r.Status.String(),
	}
	if r.IsSuccess() {
		reply.Headers.MsgType = MsgTypeTransactionSuccess
	} else {
		reply.Headers.MsgType = MsgTypeTransactionFailure
	}
	return reply
}

type ErrorReply struct {
	ReplyCommon
	ErrorMessage    string `json:"errorMessage,omitempty"`
	ErrorKind       string `json:"errorKind,omitempty"`
	OriginalMessage string `json:"requestPayload,omitempty"`
	TXHash          string `json:"transactionID,omitempty"`
}

// NewErrorReply is a helper to construct an error message
func NewErrorReply(err error, origMsg interface{}) *ErrorReply {
	var errMsg ErrorReply
	errMsg.Headers.MsgType = MsgTypeError
	if err != nil {
		errMsg.ErrorMessage = err.Error()
		if kind, ok := errors.KindOf(err); ok {
			errMsg.ErrorKind = string(kind)
		}
	}
	if origMsg != nil && reflect.TypeOf(origMsg).Kind() == reflect.Slice {
		errMsg.OriginalMessage = string(origMsg.([]byte))
	} else if origMsg != nil {
		origMsgBytes, _ := json.Marshal(origMsg)
		if origMsgBytes != nil {
			errMsg.OriginalMessage = string(origMsgBytes)
		}
	}
	return &errMsg
}
