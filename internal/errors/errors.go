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

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrorID enumerates all errors in loyaltyconnect.
type ErrorID string
type Error string

func (e Error) Error() string {
	return string(e)
}

// Errorf creates an error (not yet translated, but an extensible interface for that using simple sprintf formatting rather than named i18n inserts)
func Errorf(msg ErrorID, inserts ...interface{}) error {
	var err error = Error(fmt.Sprintf(string(msg), inserts...))
	return errors.WithStack(err)
}

const (
	// ConfigFileReadFailed failed to read the server config file
	ConfigFileReadFailed = "Failed to read %s: %s"
	// ConfigFileMissing missing configuration file on server start
	ConfigFileMissing = "No configuration filename specified"
	// ConfigYAMLParseFile failed to parse YAML during server startup
	ConfigYAMLParseFile = "Unable to parse %s as YAML: %s"
	// ConfigYAMLPostParseFile failed to process YAML as JSON after parsing
	ConfigYAMLPostParseFile = "Failed to process YAML config from %s: %s"
	// ConfigRESTGatewayRequiredHTTPPort for rest server listening port missing
	ConfigRESTGatewayRequiredHTTPPort = "Must provide REST Gateway http listening port"
	// ConfigRequiredConnectionProfile the Fabric connection profile is mandatory
	ConfigRequiredConnectionProfile = "Must provide the path to the Fabric connection profile"
	// ConfigRequiredMSPID identities cannot be tagged without an MSP
	ConfigRequiredMSPID = "Must provide the organization MSP ID"
	// ConfigRESTGatewayRequiredReceiptStore need to enable params for REST Gatewya
	ConfigRESTGatewayRequiredReceiptStore = "MongoDB URL, Database and Collection name must be specified to enable the receipt store"
	// ConfigTLSCertOrKey incomplete TLS config
	ConfigTLSCertOrKey = "Client private key and certificate must both be provided for mutual auth"
	// ConfigKafkaMissingOutputTopic response topic missing
	ConfigKafkaMissingOutputTopic = "No output topic specified for bridge to send events to"
	// ConfigKafkaMissingInputTopic request topic missing
	ConfigKafkaMissingInputTopic = "No input topic specified for bridge to listen to"
	// ConfigKafkaMissingConsumerGroup consumer group missing
	ConfigKafkaMissingConsumerGroup = "No consumer group specified"
	// ConfigKafkaMissingBadSASL problem with SASL config
	ConfigKafkaMissingBadSASL = "Username and Password must both be provided for SASL"
	// ConfigKafkaMissingBrokers no bootstrap brokers
	ConfigKafkaMissingBrokers = "No Kafka brokers configured"

	// ProfileReadFailed the connection profile could not be loaded
	ProfileReadFailed = "Failed to read the connection profile %s: %s"
	// ProfileParseFailed the connection profile is not JSON or YAML
	ProfileParseFailed = "Failed to parse the connection profile %s: %s"
	// ProfileMissingOrganization client.organization not set
	ProfileMissingOrganization = "Connection profile %s does not specify client.organization"
	// ProfileInvalidURL an entity URL could not be rewritten
	ProfileInvalidURL = "Invalid URL '%s' for %s in the connection profile: %s"

	// CAClientCreateFailed the SDK or CA client could not be constructed
	CAClientCreateFailed = "Failed to create the CA client for organization %s: %s"
	// CAKeystoreMissing no crypto store path to export keys from
	CAKeystoreMissing = "The connection profile does not configure a crypto store to export private keys from"
	// CAKeyExportFailed private key could not be read from the keystore
	CAKeyExportFailed = "Failed to export the private key for %s: %s"

	// WalletOpenFailed wallet directory could not be opened
	WalletOpenFailed = "Failed to open the wallet at %s: %s"
	// WalletReadFailed identity could not be read
	WalletReadFailed = "Failed to read identity %s from the wallet: %s"
	// WalletUnsupportedIdentity only X.509 identities are stored
	WalletUnsupportedIdentity = "Identity %s in the wallet is not an X.509 identity"
	// WalletLockFailed registration lock could not be acquired
	WalletLockFailed = "Failed to acquire the registration lock for %s: %s"

	// IdentityExists registration for a card id already present
	IdentityExists = "An identity for the user %s already exists in the wallet"
	// IdentityAdminMissing admin has not been enrolled
	IdentityAdminMissing = "An identity for the admin user %s does not exist in the wallet. Run the enroll-admin command before retrying"
	// IdentityMissing caller identity not enrolled
	IdentityMissing = "An identity for the user %s does not exist in the wallet"
	// IdentityRegisterFailed CA rejected the registration
	IdentityRegisterFailed = "Failed to register user %s: %s"
	// IdentityEnrollFailed CA rejected the enrollment
	IdentityEnrollFailed = "Failed to enroll user %s: %s"
	// IdentityStoreFailed wallet write failed
	IdentityStoreFailed = "Failed to store identity %s in the wallet: %s"

	// LedgerConnectFailed gateway connection failed
	LedgerConnectFailed = "Failed to connect to the gateway as %s: %s"
	// LedgerNetworkFailed channel could not be resolved
	LedgerNetworkFailed = "Failed to get network %s: %s"
	// LedgerSubmitFailed submission failed
	LedgerSubmitFailed = "Failed to submit transaction %s: %s"
	// LedgerEvaluateFailed evaluation failed
	LedgerEvaluateFailed = "Failed to evaluate transaction %s: %s"
	// LedgerCreateTxFailed transaction could not be built
	LedgerCreateTxFailed = "Failed to create transaction %s: %s"
	// LedgerCommitInvalid transaction committed with a non-valid code
	LedgerCommitInvalid = "Transaction %s failed with status %s"
	// LedgerCommitTimeout no commit event within the timeout
	LedgerCommitTimeout = "Timed out waiting for the commit event of transaction %s"
	// LedgerInvalidResponse result is not JSON
	LedgerInvalidResponse = "Failed to parse the response of %s as JSON: %s"
	// LedgerMissingPayload operation called without its payload
	LedgerMissingPayload = "No %s payload supplied for %s"
	// LedgerContextDone caller gave up before the transaction was invoked
	LedgerContextDone = "Abandoned %s for %s before invoking it: %s"
	// LedgerMarshalArgs request could not be serialized
	LedgerMarshalArgs = "Failed to serialize the arguments of %s: %s"

	// TransactionMsgTypeUnknown we got a JSON message into the processor that we don't know how to process
	TransactionMsgTypeUnknown = "Unknown message type '%s'"
	// TransactionMissingSigner every request needs a card id
	TransactionMissingSigner = "Must specify the signer"

	// RequestHandlerInvalidMsgHeaders headers missing from the request
	RequestHandlerInvalidMsgHeaders = "Invalid message - missing 'headers' (or not an object)"
	// RequestHandlerInvalidMsgTypeMissing headers.type missing
	RequestHandlerInvalidMsgTypeMissing = "Invalid message - missing 'headers.type' (or not a string)"
	// RequestHandlerInvalidMsgSignerMissing headers.signer missing
	RequestHandlerInvalidMsgSignerMissing = "Invalid message - missing 'headers.signer' (or not a string)"
	// RequestHandlerInvalidMsgType only transactions can be sent asynchronously
	RequestHandlerInvalidMsgType = "Invalid message type '%s' for asynchronous dispatch"
	// RequestHandlerKafkaBadRequest a request consumed from Kafka could not be parsed
	RequestHandlerKafkaBadRequest = "Unable to parse request from Kafka: %s"
	// RequestHandlerDirectTooManyInflight too many in-flight transactions
	RequestHandlerDirectTooManyInflight = "Too many in-flight transactions"
	// RequestHandlerKafkaMsgtoJSON re-serialization of the request failed
	RequestHandlerKafkaMsgtoJSON = "Unable to reserialize message payload as JSON: %s"
	// RequestHandlerKafkaErr wrapper on detailed error from Kafka itself
	RequestHandlerKafkaErr = "Failed to deliver message to Kafka: %s"
	// RequestHandlerKafkaUnexpectedErrFmt problem processing an error that came back from Kafka, but we couldn't correlate it
	RequestHandlerKafkaUnexpectedErrFmt = "Error did not contain message and metadata: %+v"
	// RequestHandlerKafkaDeliveryReportNoMeta delivery reports should contain the metadata we set when we sent
	RequestHandlerKafkaDeliveryReportNoMeta = "Sent message did not contain metadata: %+v"

	// RESTGatewaySyncWrapErrorWithTXDetail wrapper for sync errors
	RESTGatewaySyncWrapErrorWithTXDetail = "TX %s: %s"
	// RESTGatewayInvalidSchema request body does not match the schema
	RESTGatewayInvalidSchema = "Invalid request body: %s"
	// RESTGatewayMissingQueryParam a required query parameter is absent
	RESTGatewayMissingQueryParam = "Must specify the '%s' query parameter"

	// HelperYAMLorJSONPayloadTooLarge input message too large
	HelperYAMLorJSONPayloadTooLarge = "Message exceeds maximum allowable size"
	// HelperYAMLorJSONPayloadReadFailed failed to read input
	HelperYAMLorJSONPayloadReadFailed = "Unable to read input data: %s"
	// HelperYAMLorJSONPayloadParseFailed input message got error parsing
	HelperYAMLorJSONPayloadParseFailed = "Unable to parse as YAML or JSON: %s"

	// ReceiptStoreSerializeResponse problem sending a receipt stored back over the REST API
	ReceiptStoreSerializeResponse = "Error serializing response"
	// ReceiptStoreInvalidRequestID bad ID query
	ReceiptStoreInvalidRequestID = "Invalid 'id' query parameter"
	// ReceiptStoreInvalidRequestMaxLimit bad limit over max
	ReceiptStoreInvalidRequestMaxLimit = "Maximum limit is %d"
	// ReceiptStoreInvalidRequestBadLimit bad limit
	ReceiptStoreInvalidRequestBadLimit = "Invalid 'limit' query parameter"
	// ReceiptStoreInvalidRequestBadSkip bad skip
	ReceiptStoreInvalidRequestBadSkip = "Invalid 'skip' query parameter"
	// ReceiptStoreInvalidRequestBadSince bad since
	ReceiptStoreInvalidRequestBadSince = "since cannot be parsed as RFC3339 or millisecond timestamp"
	// ReceiptStoreFailedQuery wrapper over detailed error
	ReceiptStoreFailedQuery = "Error querying replies: %s"
	// ReceiptStoreFailedQuerySingle wrapper over detailed error
	ReceiptStoreFailedQuerySingle = "Error querying reply: %s"
	// ReceiptStoreFailedNotFound receipt isn't in the store
	ReceiptStoreFailedNotFound = "Receipt not available"
	// ReceiptStoreMongoDBConnect couldn't connect to MongoDB
	ReceiptStoreMongoDBConnect = "Unable to connect to MongoDB: %s"
	// ReceiptStoreMongoDBIndex couldn't create MongoDB index
	ReceiptStoreMongoDBIndex = "Unable to create index: %s"
	// ReceiptStoreLevelDBConnect couldn't open file for the level DB
	ReceiptStoreLevelDBConnect = "Unable to open LevelDB: %s"
	// ReceiptStorePostgresConnect couldn't connect to PostgreSQL
	ReceiptStorePostgresConnect = "Unable to connect to PostgreSQL: %s"
	// ReceiptStorePostgresBadTable table names are inlined into SQL, so are restricted
	ReceiptStorePostgresBadTable = "Invalid PostgreSQL table name '%s'"
	// ReceiptStoreDuplicate a receipt is already stored for the request
	ReceiptStoreDuplicate = "A receipt already exists for request %s"
	// ReceiptStorePostgresMigrate schema creation failed
	ReceiptStorePostgresMigrate = "Unable to create the receipts table: %s"

	// LevelDBFailedRetriveOriginalKey problem retrieving entry - original key
	LevelDBFailedRetriveOriginalKey = "Failed to retrieve the entry for the original key: %s. %s"
	// LevelDBFailedRetriveGeneratedID problem retrieving entry - generated ID
	LevelDBFailedRetriveGeneratedID = "Failed to retrieve the entry for the generated ID: %s. %s"

	// KVStoreDBLoad failed to init DB
	KVStoreDBLoad = "Failed to open DB at %s: %s"
	// KVStoreMemFilteringUnsupported memory db is really just for testing. No filtering support
	KVStoreMemFilteringUnsupported = "Memory receipts do not support filtering"

	// Unauthorized (401 error)
	Unauthorized = "Unauthorized"

	// WebSocketErrorFromClient Error message received from client
	WebSocketErrorFromClient = "Error received from WebSocket client: %s"
)

type RestErrMsg struct {
	Message string `json:"error"`
}

func RestErrReply(res http.ResponseWriter, req *http.Request, err error, status int) {
	log.Errorf("<-- %s %s [%d]: %s", req.Method, req.URL, status, err)
	reply, _ := json.Marshal(&RestErrMsg{Message: err.Error()})
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(reply)
}
