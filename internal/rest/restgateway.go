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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/identity"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/loyalty"
	restasync "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/async"
	restidentity "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/identity"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt"
	restsync "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/sync"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/ws"

	log "github.com/sirupsen/logrus"
)

const (
	// MaxHeaderSize max size of content
	MaxHeaderSize = 16 * 1024
)

type networkFactory func(config *conf.RESTGatewayConf, identities wallet.IdentityStore) (loyalty.Network, error)

var newNetwork networkFactory = connectNetwork

// connectNetwork wires the loyalty facade to the network described by the
// connection profile, registering unknown card ids through the CA
func connectNetwork(config *conf.RESTGatewayConf, identities wallet.IdentityStore) (loyalty.Network, error) {
	profile, err := fabric.LoadProfile(&config.Fabric)
	if err != nil {
		return nil, err
	}
	mgr, err := identity.NewManagerFromConfig(config, profile, identities)
	if err != nil {
		return nil, err
	}
	connector := fabric.NewConnector(profile, identities, config.Fabric.Timeout)
	return loyalty.NewNetwork(&config.Fabric, mgr, connector), nil
}

// RESTGateway as the HTTP gateway interface for loyaltyconnect
type RESTGateway struct {
	config          *conf.RESTGatewayConf
	processor       tx.TxProcessor
	receiptStore    receipt.ReceiptStore
	syncDispatcher  restsync.SyncDispatcher
	asyncDispatcher restasync.AsyncDispatcher
	ws              ws.WebSocketServer
	router          *router
	srv             *http.Server
}

type statusMsg struct {
	OK bool `json:"ok"`
}

// NewRESTGateway constructor
func NewRESTGateway(config *conf.RESTGatewayConf) *RESTGateway {
	g := &RESTGateway{
		config: config,
	}
	g.processor = tx.NewTxProcessor(g.config)
	g.syncDispatcher = restsync.NewSyncDispatcher(g.processor)
	g.receiptStore = receipt.NewReceiptStore(g.config)
	g.asyncDispatcher = restasync.NewAsyncDispatcher(g.config, g.processor, g.receiptStore)
	return g
}

func (g *RESTGateway) Init() error {
	g.config.Fabric.ApplyDefaults()
	identities, err := wallet.NewFileSystemStore(g.config.Fabric.WalletPath, g.config.IdentityCacheSize)
	if err != nil {
		return err
	}
	network, err := newNetwork(g.config, identities)
	if err != nil {
		return err
	}
	g.processor.Init(network)

	g.ws = ws.NewWebSocketServer()
	if err = g.receiptStore.Init(g.ws); err != nil {
		g.ws.Close()
		return err
	}

	g.router = newRouter(g.syncDispatcher, g.asyncDispatcher, restidentity.NewIdentityClient(identities), g.ws)
	g.router.addRoutes()

	return nil
}

func (g *RESTGateway) ValidateConf() error {
	// HTTP and Fabric configurations are mandatory
	if g.config.HTTP.Port == 0 {
		return errors.Errorf(errors.ConfigRESTGatewayRequiredHTTPPort)
	}
	if g.config.Fabric.ConnectionProfile == "" {
		return errors.Errorf(errors.ConfigRequiredConnectionProfile)
	}
	if g.config.Fabric.OrgMSPID == "" {
		return errors.Errorf(errors.ConfigRequiredMSPID)
	}
	if g.config.HTTP.LocalAddr == "" {
		g.config.HTTP.LocalAddr = "0.0.0.0"
	}
	if err := g.receiptStore.ValidateConf(); err != nil {
		return err
	}
	return g.asyncDispatcher.ValidateConf()
}

// Start kicks off the HTTP listener and router
func (g *RESTGateway) Start() error {
	tlsConfig, err := utils.CreateServerTLSConfiguration(&g.config.HTTP.TLS)
	if err != nil {
		return err
	}

	g.srv = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", g.config.HTTP.LocalAddr, g.config.HTTP.Port),
		TLSConfig:      tlsConfig,
		Handler:        g.router.handler(),
		MaxHeaderBytes: MaxHeaderSize,
	}

	readyToListen := make(chan bool)
	gwDone := make(chan error, 1)
	svrDone := make(chan error, 1)

	go func() {
		<-readyToListen
		log.Printf("HTTP server listening on %s", g.srv.Addr)
		var err error
		if tlsConfig != nil {
			err = g.srv.ListenAndServeTLS("", "")
		} else {
			err = g.srv.ListenAndServe()
		}
		if err != nil {
			log.Errorf("Listening ended with: %s", err)
		}
		svrDone <- err
	}()
	go func() {
		err := g.asyncDispatcher.Run()
		if err != nil {
			log.Errorf("Async dispatcher ended with: %s", err)
		}
		gwDone <- err
	}()
	for !g.asyncDispatcher.IsInitialized() {
		time.Sleep(250 * time.Millisecond)
	}
	readyToListen <- true

	// Clean up on SIGINT
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(signals)
	// Complete the main routine if any child ends, or SIGINT
	select {
	case err = <-gwDone:
	case err = <-svrDone:
	case <-signals:
	}

	g.Shutdown()

	log.Infof("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = g.srv.Shutdown(ctx)

	return err
}

func (g *RESTGateway) Shutdown() {
	g.asyncDispatcher.Close()
	if g.ws != nil {
		g.ws.Close()
	}
	g.receiptStore.Close()
}
