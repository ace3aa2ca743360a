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

package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	restasync "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/async"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/identity"
	restsync "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/sync"
	restutil "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/utils"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/ws"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	log "github.com/sirupsen/logrus"
)

type router struct {
	syncDispatcher  restsync.SyncDispatcher
	asyncDispatcher restasync.AsyncDispatcher
	identityClient  identity.IdentityClient
	ws              ws.WebSocketServer
	httpRouter      *httprouter.Router
}

func newRouter(syncDispatcher restsync.SyncDispatcher, asyncDispatcher restasync.AsyncDispatcher, idClient identity.IdentityClient, ws ws.WebSocketServer) *router {
	return &router{
		syncDispatcher:  syncDispatcher,
		asyncDispatcher: asyncDispatcher,
		identityClient:  idClient,
		ws:              ws,
		httpRouter:      httprouter.New(),
	}
}

func (r *router) addRoutes() {
	r.httpRouter.POST("/members", r.sendTransaction(messages.MsgTypeRegisterMember))
	r.httpRouter.POST("/partners", r.sendTransaction(messages.MsgTypeRegisterPartner))
	r.httpRouter.POST("/points/earn", r.sendTransaction(messages.MsgTypeEarnPoints))
	r.httpRouter.POST("/points/use", r.sendTransaction(messages.MsgTypeUsePoints))

	r.httpRouter.GET("/members/:accountNumber", r.query(messages.MsgTypeMemberData))
	r.httpRouter.GET("/partners/:partnerId", r.query(messages.MsgTypePartnerData))
	r.httpRouter.GET("/partners", r.query(messages.MsgTypeAllPartners))
	r.httpRouter.GET("/transactions/earn", r.query(messages.MsgTypeEarnPointsTransactions))
	r.httpRouter.GET("/transactions/use", r.query(messages.MsgTypeUsePointsTransactions))

	r.httpRouter.GET("/identities", r.listIdentities)
	r.httpRouter.GET("/identities/:cardId", r.getIdentity)
	r.httpRouter.GET("/receipts", r.handleReceipts)
	r.httpRouter.GET("/receipts/:id", r.handleReceipts)

	r.httpRouter.GET("/ws", r.wsHandler)
	r.httpRouter.GET("/status", r.statusHandler)
}

// handler is the root of the HTTP server, with CORS answered ahead of
// the access token check
func (r *router) handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}).Handler(r.newAccessTokenContextHandler())
}

func (r *router) newAccessTokenContextHandler() http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {

		// Extract an access token from bearer token (only - no support for query params)
		accessToken := ""
		hSplit := strings.SplitN(req.Header.Get("Authorization"), " ", 2)
		if len(hSplit) == 2 && strings.ToLower(hSplit[0]) == "bearer" {
			accessToken = hSplit[1]
		}
		authCtx, err := auth.WithAuthContext(req.Context(), accessToken)
		if err != nil {
			log.Errorf("Error getting auth context: %s", err)
			errors.RestErrReply(res, req, errors.Errorf(errors.Unauthorized), 401)
			return
		}

		r.httpRouter.ServeHTTP(res, req.WithContext(authCtx))
	})
}

func (r *router) wsHandler(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	r.ws.NewConnection(res, req, params)
}

func (r *router) statusHandler(res http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	reply, _ := json.Marshal(&statusMsg{OK: true})
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(200)
	_, _ = res.Write(reply)
}

// sendTransaction handles the state changing operations, which reply with
// the receipt when sync, or are queued for later when not
func (r *router) sendTransaction(msgType string) httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		log.Infof("--> %s %s", req.Method, req.URL)

		msg, opts, err := restutil.BuildTxMessage(req, msgType)
		if err != nil {
			errors.RestErrReply(res, req, err.Error, err.StatusCode)
			return
		}
		if opts.Sync {
			r.syncDispatcher.DispatchMsgSync(req.Context(), res, req, msg)
			return
		}
		asyncResponse, status, dispatchErr := r.asyncDispatcher.DispatchMsgAsync(req.Context(), msg, opts.Ack)
		if dispatchErr != nil {
			errors.RestErrReply(res, req, dispatchErr, status)
			return
		}
		restAsyncReply(res, req, asyncResponse)
	}
}

func (r *router) query(msgType string) httprouter.Handle {
	return func(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
		log.Infof("--> %s %s", req.Method, req.URL)

		msg, err := restutil.BuildQueryMessage(req, msgType, params)
		if err != nil {
			errors.RestErrReply(res, req, err.Error, err.StatusCode)
			return
		}
		// query requests are always synchronous
		r.syncDispatcher.DispatchMsgSync(req.Context(), res, req, msg)
	}
}

func (r *router) listIdentities(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	log.Infof("--> %s %s", req.Method, req.URL)
	result, err := r.identityClient.List(res, req, params)
	if err != nil {
		errors.RestErrReply(res, req, err.Error, err.StatusCode)
		return
	}
	marshalAndReply(res, req, result)
}

func (r *router) getIdentity(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	log.Infof("--> %s %s", req.Method, req.URL)
	result, err := r.identityClient.Get(res, req, params)
	if err != nil {
		errors.RestErrReply(res, req, err.Error, err.StatusCode)
		return
	}
	marshalAndReply(res, req, result)
}

func (r *router) handleReceipts(res http.ResponseWriter, req *http.Request, params httprouter.Params) {
	r.asyncDispatcher.HandleReceipts(res, req, params)
}

func restAsyncReply(res http.ResponseWriter, req *http.Request, asyncResponse *messages.AsyncSentMsg) {
	resBytes, _ := json.Marshal(asyncResponse)
	status := 202 // accepted
	log.Infof("<-- %s %s [%d]:\n%s", req.Method, req.URL, status, string(resBytes))
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(resBytes)
}

func marshalAndReply(res http.ResponseWriter, req *http.Request, result interface{}) {
	resBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("Error serializing reply: %s", err)
		errors.RestErrReply(res, req, errors.Errorf(errors.ReceiptStoreSerializeResponse), 500)
		return
	}
	status := 200
	log.Infof("<-- %s %s [%d]", req.Method, req.URL, status)
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(resBytes)
}
