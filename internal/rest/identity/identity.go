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

package identity

import (
	"net/http"
	"sort"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	restutil "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/utils"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	"github.com/julienschmidt/httprouter"
)

const (
	OpListIdentities = "ListIdentities"
	OpGetIdentity    = "GetIdentity"
)

// Identity is the public view of a wallet entry. The private key never
// leaves the wallet
type Identity struct {
	Name           string `json:"name"`
	MSPID          string `json:"mspId,omitempty"`
	EnrollmentCert string `json:"enrollmentCert,omitempty"`
}

type IdentityClient interface {
	List(res http.ResponseWriter, req *http.Request, params httprouter.Params) ([]*Identity, *restutil.RestError)
	Get(res http.ResponseWriter, req *http.Request, params httprouter.Params) (*Identity, *restutil.RestError)
}

type walletClient struct {
	identities wallet.IdentityStore
}

// NewIdentityClient exposes the card ids held in the wallet
func NewIdentityClient(identities wallet.IdentityStore) IdentityClient {
	return &walletClient{identities: identities}
}

func (w *walletClient) List(res http.ResponseWriter, req *http.Request, params httprouter.Params) ([]*Identity, *restutil.RestError) {
	if err := auth.Operation(req.Context(), OpListIdentities, ""); err != nil {
		return nil, restutil.NewRestError(err, 401)
	}
	labels, err := w.identities.List()
	if err != nil {
		return nil, restutil.NewRestError(err)
	}
	sort.Strings(labels)
	result := make([]*Identity, len(labels))
	for i, label := range labels {
		result[i] = &Identity{Name: label}
	}
	return result, nil
}

func (w *walletClient) Get(res http.ResponseWriter, req *http.Request, params httprouter.Params) (*Identity, *restutil.RestError) {
	cardID := params.ByName("cardId")
	if err := auth.Operation(req.Context(), OpGetIdentity, cardID); err != nil {
		return nil, restutil.NewRestError(err, 401)
	}
	id, err := w.identities.Get(cardID)
	if err != nil {
		return nil, restutil.NewRestError(err)
	}
	return &Identity{
		Name:           id.Label,
		MSPID:          id.MSPID,
		EnrollmentCert: id.Certificate,
	}, nil
}
