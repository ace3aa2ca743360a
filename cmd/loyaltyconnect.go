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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/identity"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

func initLogging(debugLevel int) {
	log.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		DisableSorting:  true,
		ForceFormatting: true,
		FullTimestamp:   true,
	})
	switch debugLevel {
	case 0:
		log.SetLevel(log.ErrorLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	case 2:
		log.SetLevel(log.DebugLevel)
	case 3:
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
	log.Debugf("Log level set to %d", debugLevel)
}

var rootConfig struct {
	DebugLevel int
	DebugPort  int
	PrintYAML  bool
	Filename   string
}

var restGatewayConf conf.RESTGatewayConf
var restGateway *rest.RESTGateway

var rootCmd = &cobra.Command{
	Use:   "loyaltyconnect [sub]",
	Short: "Customer loyalty gateway for a Hyperledger Fabric network",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging(rootConfig.DebugLevel)

		if rootConfig.DebugPort > 0 {
			go func() {
				addr := fmt.Sprintf("localhost:%d", rootConfig.DebugPort)
				log.Debugf("Debug HTTP endpoint listening on %s: %s", addr, http.ListenAndServe(addr, newDebugRouter().handler()))
			}()
		}
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Runs the REST gateway for the loyalty network",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		restGateway = rest.NewRESTGateway(&restGatewayConf)
		return restGateway.ValidateConf()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if rootConfig.PrintYAML {
			b, err := utils.MarshalToYAML(viper.AllSettings())
			print("# Full YAML configuration processed from supplied file\n" + string(b))
			return err
		}
		if err := restGateway.Init(); err != nil {
			return err
		}
		return restGateway.Start()
	},
}

var enrollAdminCmd = &cobra.Command{
	Use:   "enroll-admin",
	Short: "Enrolls the application admin with the Fabric CA, and stores it in the wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		mgr, err := newAdminManager(&restGatewayConf)
		if err != nil {
			return err
		}
		if err := mgr.EnrollAdmin(context.Background()); err != nil {
			log.Errorf("Failed to enroll admin user %q: %s", restGatewayConf.Fabric.AppAdmin, err)
			return err
		}
		return nil
	},
}

var newAdminManager = defaultAdminManager

// defaultAdminManager opens the wallet and the CA described by the
// connection profile
func defaultAdminManager(config *conf.RESTGatewayConf) (identity.Manager, error) {
	if config.Fabric.OrgMSPID == "" {
		return nil, errors.Errorf(errors.ConfigRequiredMSPID)
	}
	identities, err := wallet.NewFileSystemStore(config.Fabric.WalletPath, config.IdentityCacheSize)
	if err != nil {
		return nil, err
	}
	profile, err := fabric.LoadProfile(&config.Fabric)
	if err != nil {
		return nil, err
	}
	return identity.NewManagerFromConfig(config, profile, identities)
}

// loadConfig merges the config file, LC_ prefixed env vars and the command
// line into restGatewayConf. Flags win over env, env over the file
func loadConfig() error {
	if rootConfig.Filename != "" {
		viper.SetConfigFile(rootConfig.Filename)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Errorf(errors.ConfigFileReadFailed, rootConfig.Filename, err)
		}
	}
	viper.SetEnvPrefix("LC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.Unmarshal(&restGatewayConf); err != nil {
		return err
	}
	restGatewayConf.Fabric.ApplyDefaults()
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVarP(&rootConfig.DebugLevel, "debug", "d", 1, "0=error, 1=info, 2=debug, 3=trace")
	flags.IntVarP(&rootConfig.DebugPort, "debugPort", "Z", 0, "Port for pprof HTTP endpoints (localhost only)")
	flags.StringVarP(&rootConfig.Filename, "configfile", "f", os.Getenv("LOYALTYCONNECT_CONFIGFILE"), "Configuration file (YAML or JSON)")
	conf.CobraInitFabric(rootCmd, &restGatewayConf)

	serverCmd.Flags().BoolVarP(&rootConfig.PrintYAML, "print-yaml-confg", "Y", false, "Print YAML config snippet and exit")
	conf.CobraInit(serverCmd, &restGatewayConf)

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(enrollAdminCmd)
}

// Execute is called by the main method of the package
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		return 1
	}
	return 0
}
