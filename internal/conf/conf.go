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

package conf

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultAppAdmin            = "admin"
	DefaultAppAdminSecret      = "adminpw"
	DefaultOrgMSPID            = "Org1MSP"
	DefaultCAName              = "ca.org1.example.com"
	DefaultAffiliation         = "org1.department1"
	DefaultWalletPath          = "./wallet"
	DefaultCredentialStorePath = "./credentials"
	DefaultChannel             = "meete-channel"
	DefaultContract            = "loyalty"
	DefaultTimeout             = 30
	DefaultIdentityCacheSize   = 100
	DefaultRedisLockTTLMS      = 30000
)

// mapstructure instead of json is used for tagging the properties here
// in order to work with spf13/viper unmarshaling

// RESTGatewayConf defines the YAML config structure for the loyalty gateway
type RESTGatewayConf struct {
	MaxInFlight       int            `mapstructure:"maxInFlight"`
	MaxTXWaitTime     int            `mapstructure:"maxTXWaitTime"`
	SendConcurrency   int            `mapstructure:"sendConcurrency"`
	IdentityCacheSize int            `mapstructure:"identityCacheSize"`
	Fabric            FabricConf     `mapstructure:"fabric"`
	Redis             RedisConf      `mapstructure:"redis"`
	Kafka             KafkaConf      `mapstructure:"kafka"`
	Receipts          ReceiptsDBConf `mapstructure:"receipts"`
	HTTP              HTTPConf       `mapstructure:"http"`
}

// FabricConf is everything needed to reach the loyalty contract and its CA
type FabricConf struct {
	ConnectionProfile   string        `mapstructure:"connectionProfile"`
	AppAdmin            string        `mapstructure:"appAdmin"`
	AppAdminSecret      string        `mapstructure:"appAdminSecret"`
	OrgMSPID            string        `mapstructure:"orgMSPID"`
	CAName              string        `mapstructure:"caName"`
	Affiliation         string        `mapstructure:"affiliation"`
	WalletPath          string        `mapstructure:"walletPath"`
	CredentialStorePath string        `mapstructure:"credentialStorePath"`
	Channel             string        `mapstructure:"channel"`
	Contract            string        `mapstructure:"contract"`
	Timeout             int           `mapstructure:"timeout"`
	GatewayDiscovery    DiscoveryConf `mapstructure:"gatewayDiscovery"`
}

// DiscoveryConf is the discovery policy applied to gateway connections
type DiscoveryConf struct {
	Enabled     bool `mapstructure:"enabled"`
	AsLocalhost bool `mapstructure:"asLocalhost"`
}

// RedisConf enables the cross-process registration lock when Addr is set
type RedisConf struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	LockTTLMS int    `mapstructure:"lockTTL"`
}

// KafkaConf - Common configuration for Kafka
type KafkaConf struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"clientID"`
	ConsumerGroup string   `mapstructure:"consumerGroup"`
	TopicIn       string   `mapstructure:"topicIn"`
	TopicOut      string   `mapstructure:"topicOut"`
	ProducerFlush struct {
		Frequency int `mapstructure:"frequency"`
		Messages  int `mapstructure:"messages"`
		Bytes     int `mapstructure:"bytes"`
	} `mapstructure:"producerFlush"`
	SASL struct {
		Username string
		Password string
	} `mapstructure:"sasl"`
	TLS TLSConfig `mapstructure:"tls"`
}

type ReceiptsDBConf struct {
	MaxDocs             int                  `mapstructure:"maxDocs"`
	QueryLimit          int                  `mapstructure:"queryLimit"`
	RetryInitialDelayMS int                  `mapstructure:"retryInitialDelay"`
	RetryTimeoutMS      int                  `mapstructure:"retryTimeout"`
	MongoDB             MongoDBReceiptsConf  `mapstructure:"mongodb"`
	LevelDB             LevelDBReceiptsConf  `mapstructure:"leveldb"`
	PostgreSQL          PostgresReceiptsConf `mapstructure:"postgres"`
}

// MongoDBReceiptsConf is the configuration for a MongoDB receipt store
type MongoDBReceiptsConf struct {
	URL              string `mapstructure:"url"`
	Database         string `mapstructure:"database"`
	Collection       string `mapstructure:"collection"`
	ConnectTimeoutMS int    `mapstructure:"connectTimeout"`
}

type LevelDBReceiptsConf struct {
	Path string `mapstructure:"path"`
}

// PostgresReceiptsConf is the configuration for a PostgreSQL receipt store
type PostgresReceiptsConf struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type HTTPConf struct {
	LocalAddr string    `mapstructure:"localAddr"`
	Port      int       `mapstructure:"port"`
	TLS       TLSConfig `mapstructure:"tls"`
}

// TLSConfig is the common TLS config
type TLSConfig struct {
	ClientCertsFile    string `mapstructure:"clientCertsFile"`
	ClientKeyFile      string `mapstructure:"clientKeyFile"`
	CACertsFile        string `mapstructure:"caCertsFile"`
	Enabled            bool   `mapstructure:"enabled"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
}

// ApplyDefaults fills the Fabric settings left empty by a config file
// that was not loaded through the command line
func (f *FabricConf) ApplyDefaults() {
	if f.AppAdmin == "" {
		f.AppAdmin = DefaultAppAdmin
	}
	if f.AppAdminSecret == "" {
		f.AppAdminSecret = DefaultAppAdminSecret
	}
	if f.CAName == "" {
		f.CAName = DefaultCAName
	}
	if f.Affiliation == "" {
		f.Affiliation = DefaultAffiliation
	}
	if f.WalletPath == "" {
		f.WalletPath = DefaultWalletPath
	}
	if f.CredentialStorePath == "" {
		f.CredentialStorePath = DefaultCredentialStorePath
	}
	if f.Channel == "" {
		f.Channel = DefaultChannel
	}
	if f.Contract == "" {
		f.Contract = DefaultContract
	}
	if f.Timeout <= 0 {
		f.Timeout = DefaultTimeout
	}
}

func bindFlag(flags *pflag.FlagSet, key, name string) {
	_ = viper.BindPFlag(key, flags.Lookup(name))
}

// CobraInitFabric sets the command-line parameters shared by every command
// that talks to the Fabric network
func CobraInitFabric(cmd *cobra.Command, conf *RESTGatewayConf) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&conf.Fabric.ConnectionProfile, "connection-profile", "r", "", "Path to the common connection profile for the target Fabric network")
	flags.StringVarP(&conf.Fabric.AppAdmin, "app-admin", "a", DefaultAppAdmin, "Enrollment ID of the application admin")
	flags.StringVarP(&conf.Fabric.AppAdminSecret, "app-admin-secret", "s", DefaultAppAdminSecret, "Enrollment secret of the application admin")
	flags.StringVarP(&conf.Fabric.OrgMSPID, "msp-id", "O", DefaultOrgMSPID, "MSP ID of the organization the identities belong to")
	flags.StringVar(&conf.Fabric.CAName, "ca-name", DefaultCAName, "Certificate authority from the connection profile")
	flags.StringVar(&conf.Fabric.Affiliation, "affiliation", DefaultAffiliation, "Affiliation for registered members and partners")
	flags.StringVarP(&conf.Fabric.WalletPath, "wallet", "W", DefaultWalletPath, "Path to the identity wallet")
	flags.StringVar(&conf.Fabric.CredentialStorePath, "credential-store", DefaultCredentialStorePath, "SDK credential store, when the connection profile has none")
	flags.StringVar(&conf.Fabric.Channel, "channel", DefaultChannel, "Channel the loyalty contract is deployed to")
	flags.StringVar(&conf.Fabric.Contract, "contract", DefaultContract, "Name of the loyalty contract")
	flags.IntVar(&conf.Fabric.Timeout, "fabric-timeout", DefaultTimeout, "Timeout for gateway operations (seconds)")
	flags.BoolVar(&conf.Fabric.GatewayDiscovery.Enabled, "discovery", true, "Enable gateway discovery")
	flags.BoolVar(&conf.Fabric.GatewayDiscovery.AsLocalhost, "as-localhost", true, "Map discovered endpoints to localhost")

	bindFlag(flags, "fabric.connectionProfile", "connection-profile")
	bindFlag(flags, "fabric.appAdmin", "app-admin")
	bindFlag(flags, "fabric.appAdminSecret", "app-admin-secret")
	bindFlag(flags, "fabric.orgMSPID", "msp-id")
	bindFlag(flags, "fabric.caName", "ca-name")
	bindFlag(flags, "fabric.affiliation", "affiliation")
	bindFlag(flags, "fabric.walletPath", "wallet")
	bindFlag(flags, "fabric.credentialStorePath", "credential-store")
	bindFlag(flags, "fabric.channel", "channel")
	bindFlag(flags, "fabric.contract", "contract")
	bindFlag(flags, "fabric.timeout", "fabric-timeout")
	bindFlag(flags, "fabric.gatewayDiscovery.enabled", "discovery")
	bindFlag(flags, "fabric.gatewayDiscovery.asLocalhost", "as-localhost")

	flags.StringVar(&conf.Redis.Addr, "redis-addr", os.Getenv("REDIS_HOST"), "Redis address for the distributed registration lock")
	flags.IntVar(&conf.Redis.DB, "redis-db", 0, "Redis database for the registration lock")
	flags.IntVar(&conf.Redis.LockTTLMS, "redis-lock-ttl", DefaultRedisLockTTLMS, "Expiry of a registration lock (ms)")
	bindFlag(flags, "redis.addr", "redis-addr")
	bindFlag(flags, "redis.db", "redis-db")
	bindFlag(flags, "redis.lockTTL", "redis-lock-ttl")

	flags.IntVar(&conf.IdentityCacheSize, "identity-cache", DefaultIdentityCacheSize, "Number of wallet identities to remember as present")
	bindFlag(flags, "identityCacheSize", "identity-cache")
}

// CobraInit sets the standard command-line parameters for the REST gateway
func CobraInit(cmd *cobra.Command, conf *RESTGatewayConf) {
	flags := cmd.Flags()
	flags.IntVarP(&conf.MaxInFlight, "maxinflight", "m", 0, "Maximum messages to hold in-flight")
	flags.IntVarP(&conf.MaxTXWaitTime, "tx-timeout", "x", 0, "Maximum wait time for an individual transaction (seconds)")
	flags.IntVar(&conf.SendConcurrency, "send-concurrency", 0, "Maximum transactions submitted concurrently")
	flags.StringVarP(&conf.HTTP.LocalAddr, "listen-addr", "L", "", "Local address to listen on")
	flags.IntVarP(&conf.HTTP.Port, "listen-port", "P", 3000, "Port to listen on")
	bindFlag(flags, "maxInFlight", "maxinflight")
	bindFlag(flags, "maxTXWaitTime", "tx-timeout")
	bindFlag(flags, "sendConcurrency", "send-concurrency")
	bindFlag(flags, "http.localAddr", "listen-addr")
	bindFlag(flags, "http.port", "listen-port")

	flags.IntVarP(&conf.Receipts.MaxDocs, "receipt-maxdocs", "X", 0, "Receipt store capped size (new collections only)")
	flags.IntVarP(&conf.Receipts.QueryLimit, "receipt-query-limit", "Q", 0, "Maximum docs to return on a rest call (cap on limit)")
	flags.StringVarP(&conf.Receipts.MongoDB.URL, "mongodb-url", "M", "", "MongoDB URL for a receipt store")
	flags.StringVarP(&conf.Receipts.MongoDB.Database, "mongodb-database", "D", "", "MongoDB receipt store database")
	flags.StringVarP(&conf.Receipts.MongoDB.Collection, "mongodb-receipt-collection", "R", "", "MongoDB receipt store collection")
	flags.StringVarP(&conf.Receipts.LevelDB.Path, "leveldb-path", "B", "", "Path to LevelDB data directory")
	flags.StringVar(&conf.Receipts.PostgreSQL.DSN, "postgres-dsn", "", "PostgreSQL DSN for a receipt store")
	bindFlag(flags, "receipts.maxDocs", "receipt-maxdocs")
	bindFlag(flags, "receipts.queryLimit", "receipt-query-limit")
	bindFlag(flags, "receipts.mongodb.url", "mongodb-url")
	bindFlag(flags, "receipts.mongodb.database", "mongodb-database")
	bindFlag(flags, "receipts.mongodb.collection", "mongodb-receipt-collection")
	bindFlag(flags, "receipts.leveldb.path", "leveldb-path")
	bindFlag(flags, "receipts.postgres.dsn", "postgres-dsn")

	defBrokerList := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(defBrokerList) == 1 && defBrokerList[0] == "" {
		defBrokerList = []string{}
	}
	defTLSenabled, _ := strconv.ParseBool(os.Getenv("KAFKA_TLS_ENABLED"))
	defTLSinsecure, _ := strconv.ParseBool(os.Getenv("KAFKA_TLS_INSECURE"))
	flags.StringArrayVarP(&conf.Kafka.Brokers, "brokers", "b", defBrokerList, "Comma-separated list of bootstrap brokers")
	flags.StringVarP(&conf.Kafka.ClientID, "clientid", "i", "", "Client ID (or generated UUID)")
	flags.StringVarP(&conf.Kafka.ConsumerGroup, "consumer-group", "g", "", "Consumer group processing the loyalty requests")
	flags.StringVarP(&conf.Kafka.TopicIn, "topic-in", "n", "", "Topic to consume loyalty requests from")
	flags.StringVarP(&conf.Kafka.TopicOut, "topic-out", "o", "", "Topic to publish loyalty requests to")
	flags.StringVarP(&conf.Kafka.TLS.ClientCertsFile, "tls-clientcerts", "c", "", "A client certificate file, for mutual TLS auth")
	flags.StringVarP(&conf.Kafka.TLS.ClientKeyFile, "tls-clientkey", "k", "", "A client private key file, for mutual TLS auth")
	flags.StringVarP(&conf.Kafka.TLS.CACertsFile, "tls-cacerts", "C", "", "CA certificates file (or host CAs will be used)")
	flags.BoolVarP(&conf.Kafka.TLS.Enabled, "tls-enabled", "e", defTLSenabled, "Encrypt network connection with TLS (SSL)")
	flags.BoolVarP(&conf.Kafka.TLS.InsecureSkipVerify, "tls-insecure", "z", defTLSinsecure, "Disable verification of TLS certificate chain")
	flags.StringVarP(&conf.Kafka.SASL.Username, "sasl-username", "u", "", "Username for SASL authentication")
	flags.StringVarP(&conf.Kafka.SASL.Password, "sasl-password", "p", "", "Password for SASL authentication")
	bindFlag(flags, "kafka.brokers", "brokers")
	bindFlag(flags, "kafka.clientID", "clientid")
	bindFlag(flags, "kafka.consumerGroup", "consumer-group")
	bindFlag(flags, "kafka.topicIn", "topic-in")
	bindFlag(flags, "kafka.topicOut", "topic-out")
	bindFlag(flags, "kafka.tls.clientCertsFile", "tls-clientcerts")
	bindFlag(flags, "kafka.tls.clientKeyFile", "tls-clientkey")
	bindFlag(flags, "kafka.tls.caCertsFile", "tls-cacerts")
	bindFlag(flags, "kafka.tls.enabled", "tls-enabled")
	bindFlag(flags, "kafka.tls.insecureSkipVerify", "tls-insecure")
	bindFlag(flags, "kafka.sasl.username", "sasl-username")
	bindFlag(flags, "kafka.sasl.password", "sasl-password")
}
