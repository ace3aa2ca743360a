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

package auth

import (
	"context"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
)

type ContextKey int

const (
	ContextKeySystemAuth ContextKey = iota
	ContextKeyAuthContext
	ContextKeyAccessToken
)

// SecurityModule is the pluggable authorization hook. With no module
// registered every request is allowed
type SecurityModule interface {
	VerifyToken(token string) (interface{}, error)
	AuthOperation(authCtx interface{}, operation, cardID string) error
	AuthListAsyncReplies(authCtx interface{}) error
	AuthReadAsyncReplyByUUID(authCtx interface{}) error
}

var securityModule SecurityModule

// RegisterSecurityModule installs (or with nil, removes) the security module
func RegisterSecurityModule(sm SecurityModule) {
	securityModule = sm
}

// NewSystemAuthContext creates a system background context
func NewSystemAuthContext() context.Context {
	return context.WithValue(context.Background(), ContextKeySystemAuth, true)
}

// IsSystemContext checks if a context was created as a system context
func IsSystemContext(ctx context.Context) bool {
	b, ok := ctx.Value(ContextKeySystemAuth).(bool)
	return ok && b
}

// WithAuthContext verifies an access token and adds it to a base context
func WithAuthContext(ctx context.Context, token string) (context.Context, error) {
	if securityModule == nil {
		return ctx, nil
	}
	authCtx, err := securityModule.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, ContextKeyAccessToken, token)
	return context.WithValue(ctx, ContextKeyAuthContext, authCtx), nil
}

// GetAuthContext extracts a previously stored auth context from the context
func GetAuthContext(ctx context.Context) interface{} {
	return ctx.Value(ContextKeyAuthContext)
}

// GetAccessToken extracts a previously stored access token
func GetAccessToken(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyAccessToken).(string)
	if ok {
		return v
	}
	return ""
}

func authorize(ctx context.Context, check func(authCtx interface{}) error) error {
	if securityModule == nil || IsSystemContext(ctx) {
		return nil
	}
	authCtx := GetAuthContext(ctx)
	if authCtx == nil {
		return errors.Errorf(errors.Unauthorized)
	}
	return check(authCtx)
}

// Operation authorizes a loyalty operation on behalf of a card id
func Operation(ctx context.Context, operation, cardID string) error {
	return authorize(ctx, func(authCtx interface{}) error {
		return securityModule.AuthOperation(authCtx, operation, cardID)
	})
}

// ListAsyncReplies authorize the listing or searching of all replies
func ListAsyncReplies(ctx context.Context) error {
	return authorize(ctx, func(authCtx interface{}) error {
		return securityModule.AuthListAsyncReplies(authCtx)
	})
}

// ReadAsyncReplyByUUID authorize the query of an invidual reply by UUID
func ReadAsyncReplyByUUID(ctx context.Context) error {
	return authorize(ctx, func(authCtx interface{}) error {
		return securityModule.AuthReadAsyncReplyByUUID(authCtx)
	})
}
