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
	"strings"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/xeipuuv/gojsonschema"
)

const headersSchema = `"headers": {
	"type": "object",
	"properties": {
		"signer": {"type": "string"},
		"ctx": {"type": "object"}
	}
}`

// Request bodies are checked for field presence and types. Business rules,
// such as balances, are left to the contract
var bodySchemas = map[string]string{
	messages.MsgTypeRegisterMember: `{
		"type": "object",
		"required": ["accountNumber", "firstName", "lastName", "email", "phoneNumber"],
		"properties": {
			` + headersSchema + `,
			"accountNumber": {"type": "string", "minLength": 1},
			"firstName": {"type": "string"},
			"lastName": {"type": "string"},
			"email": {"type": "string"},
			"phoneNumber": {"type": "string"},
			"points": {"type": "integer"}
		}
	}`,
	messages.MsgTypeRegisterPartner: `{
		"type": "object",
		"required": ["id", "name"],
		"properties": {
			` + headersSchema + `,
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string"}
		}
	}`,
	messages.MsgTypeEarnPoints: pointsSchema,
	messages.MsgTypeUsePoints:  pointsSchema,
}

const pointsSchema = `{
	"type": "object",
	"required": ["points", "member", "partner"],
	"properties": {
		` + headersSchema + `,
		"points": {"type": "integer"},
		"member": {"type": "string", "minLength": 1},
		"partner": {"type": "string", "minLength": 1}
	}
}`

var compiledSchemas = compileSchemas()

func compileSchemas() map[string]*gojsonschema.Schema {
	compiled := make(map[string]*gojsonschema.Schema, len(bodySchemas))
	for msgType, s := range bodySchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
		if err != nil {
			panic(err)
		}
		compiled[msgType] = schema
	}
	return compiled
}

// ValidateBody checks a request body against the schema for its type.
// Types without a body schema always pass
func ValidateBody(msgType string, body map[string]interface{}) error {
	schema, ok := compiledSchemas[msgType]
	if !ok {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(body))
	if err != nil {
		return errors.Errorf(errors.RESTGatewayInvalidSchema, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errors.Errorf(errors.RESTGatewayInvalidSchema, strings.Join(details, "; "))
	}
	return nil
}
