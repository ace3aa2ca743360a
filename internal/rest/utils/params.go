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

package util

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/julienschmidt/httprouter"
)

type TxOpts struct {
	Sync bool // synchronous request or not
	Ack  bool // expect acknowledgement from the async request or not
}

// getFlyParam standardizes how special 'fly' params are specified, in body, query params, or headers
// these fly-* parameters are supported:
//   - signer, sync, noack
//
// precedence order:
//   - "headers" in body > query parameters > http headers
//
// naming conventions:
//   - properties in the "headers" section of the body has the original name, eg. "signer"
//   - query parameter has the short prefix, eg. "fly-signer"
//   - header has the long prefix, eg. "x-firefly-signer"
func getFlyParam(name string, body map[string]interface{}, req *http.Request) string {
	valStr := ""
	// first look inside the "headers" section in the body
	if headers, ok := body["headers"].(map[string]interface{}); ok {
		if v, ok := headers[name].(string); ok {
			valStr = v
		}
	}
	// next look in the query params
	if valStr == "" {
		vs := getQueryParamNoCase(utils.GetenvOrDefaultLowerCase("PREFIX_SHORT", "fly")+"-"+name, req)
		if len(vs) > 0 {
			valStr = vs[0]
		}
	}
	// finally look inside headers
	if valStr == "" {
		valStr = req.Header.Get("x-" + utils.GetenvOrDefaultLowerCase("PREFIX_LONG", "firefly") + "-" + name)
	}
	return valStr
}

func getQueryParamNoCase(name string, req *http.Request) []string {
	name = strings.ToLower(name)
	for k, vs := range req.Form {
		if strings.ToLower(k) == name {
			return vs
		}
	}
	return nil
}

func getFlyBool(name string, body map[string]interface{}, req *http.Request, defVal bool) (bool, *RestError) {
	valStr := getFlyParam(name, body, req)
	if valStr == "" {
		return defVal, nil
	}
	b, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, NewRestError(err, 400)
	}
	return b, nil
}

// setHeaders fills in the request headers, keeping any "ctx" the caller
// supplied so it is echoed on the reply
func setHeaders(body map[string]interface{}, msgType, signer string) {
	headers, ok := body["headers"].(map[string]interface{})
	if !ok {
		headers = make(map[string]interface{})
		body["headers"] = headers
	}
	headers["type"] = msgType
	headers["signer"] = signer
	delete(headers, "id")
}

// BuildTxMessage builds one of the state-changing messages from a POST body,
// which can be JSON or YAML
func BuildTxMessage(req *http.Request, msgType string) (map[string]interface{}, *TxOpts, *RestError) {
	body, err := utils.YAMLorJSONPayload(req)
	if err != nil {
		return nil, nil, NewRestError(err, 400)
	}
	if err := req.ParseForm(); err != nil {
		return nil, nil, NewRestError(err, 400)
	}
	if err := ValidateBody(msgType, body); err != nil {
		return nil, nil, NewRestError(err, 400)
	}

	signer := getFlyParam("signer", body, req)
	if signer == "" {
		return nil, nil, NewRestError(errors.Errorf(errors.TransactionMissingSigner), 400)
	}
	setHeaders(body, msgType, signer)

	opts := TxOpts{}
	var restErr *RestError
	if opts.Sync, restErr = getFlyBool("sync", body, req, true); restErr != nil {
		return nil, nil, restErr
	}
	noack, restErr := getFlyBool("noack", body, req, false)
	if restErr != nil {
		return nil, nil, restErr
	}
	opts.Ack = !noack

	return body, &opts, nil
}

// BuildQueryMessage builds one of the read messages from the path and query
// parameters of a GET
func BuildQueryMessage(req *http.Request, msgType string, params httprouter.Params) (map[string]interface{}, *RestError) {
	if err := req.ParseForm(); err != nil {
		return nil, NewRestError(err, 400)
	}
	body := make(map[string]interface{})
	signer := getFlyParam("signer", body, req)
	if signer == "" {
		return nil, NewRestError(errors.Errorf(errors.TransactionMissingSigner), 400)
	}

	switch msgType {
	case messages.MsgTypeMemberData:
		body["accountNumber"] = params.ByName("accountNumber")
	case messages.MsgTypePartnerData:
		body["partnerId"] = params.ByName("partnerId")
	case messages.MsgTypeEarnPointsTransactions, messages.MsgTypeUsePointsTransactions:
		for _, name := range []string{"userType", "userId"} {
			val := req.Form.Get(name)
			if val == "" {
				return nil, NewRestError(errors.Errorf(errors.RESTGatewayMissingQueryParam, name), 400)
			}
			body[name] = val
		}
	}
	setHeaders(body, msgType, signer)
	return body, nil
}
