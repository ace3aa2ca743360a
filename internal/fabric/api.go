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

package fabric

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

type TxReceipt struct {
	BlockNumber   uint64              `json:"blockNumber"`
	SignerMSP     string              `json:"signerMSP"`
	Signer        string              `json:"signer"`
	Channel       string              `json:"channel"`
	Contract      string              `json:"contract"`
	Function      string              `json:"function"`
	TransactionID string              `json:"transactionID"`
	Status        pb.TxValidationCode `json:"status"`
}

func (r *TxReceipt) IsSuccess() bool {
	return r.Status == pb.TxValidationCode_VALID
}

// Credentials is an enrolled certificate with its private key, both PEM encoded
type Credentials struct {
	Certificate string
	PrivateKey  string
}

// CA registers and enrolls identities with the organization's Fabric CA
type CA interface {
	Register(enrollmentID, affiliation string) (secret string, err error)
	Enroll(enrollmentID, secret string) (*Credentials, error)
}

// Connector opens gateway connections on behalf of a wallet identity
type Connector interface {
	Connect(label string) (Connection, error)
}

// Connection is a gateway connection for a single identity. Close must be
// called once the caller is done with it
type Connection interface {
	Contract(channel, name string) (Contract, error)
	Close()
}

// Contract invokes the functions of a deployed chaincode
type Contract interface {
	Submit(fn string, args ...string) ([]byte, *TxReceipt, error)
	Evaluate(fn string, args ...string) ([]byte, error)
}
