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
	"encoding/json"
	"net"
	"net/url"
	"os"
	"path"
	"sort"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	log "github.com/sirupsen/logrus"
)

const (
	localhost            = "localhost"
	sslTargetOverrideKey = "ssl-target-name-override"
)

// Profile is a parsed common connection profile, with the adjustments
// loyaltyconnect needs applied
type Profile struct {
	Path            string
	Organization    string
	CAName          string
	CAServerName    string
	CryptoStorePath string
	network         map[string]interface{}
}

// LoadProfile reads the JSON or YAML connection profile named in the
// Fabric config
func LoadProfile(fc *conf.FabricConf) (*Profile, error) {
	if fc.ConnectionProfile == "" {
		return nil, errors.Errorf(errors.ConfigRequiredConnectionProfile)
	}
	b, err := os.ReadFile(fc.ConnectionProfile)
	if err != nil {
		return nil, errors.Errorf(errors.ProfileReadFailed, fc.ConnectionProfile, err)
	}
	return ParseProfile(fc, fc.ConnectionProfile, b)
}

// ParseProfile processes the bytes of a connection profile
func ParseProfile(fc *conf.FabricConf, name string, b []byte) (*Profile, error) {
	jsonBytes, err := utils.YAMLToJSON(b)
	if err != nil {
		return nil, errors.Errorf(errors.ProfileParseFailed, name, err)
	}
	var network map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &network); err != nil {
		return nil, errors.Errorf(errors.ProfileParseFailed, name, err)
	}

	p := &Profile{
		Path:    name,
		CAName:  fc.CAName,
		network: network,
	}
	client := utils.GetMapMap(network, "client")
	p.Organization = utils.GetMapString(client, "organization")
	if p.Organization == "" {
		return nil, errors.Errorf(errors.ProfileMissingOrganization, name)
	}
	p.CryptoStorePath = p.ensureCredentialStore(client, fc.CredentialStorePath)

	ca := utils.GetMapMap(utils.GetMapMap(network, "certificateAuthorities"), fc.CAName)
	if ca == nil {
		log.Warnf("Certificate authority %s is not in the connection profile %s", fc.CAName, name)
	} else {
		p.CAServerName = utils.GetMapString(ca, "caName")
		if _, ok := ca["registrar"]; !ok {
			ca["registrar"] = map[string]interface{}{
				"enrollId":     fc.AppAdmin,
				"enrollSecret": fc.AppAdminSecret,
			}
		}
	}

	if !fc.GatewayDiscovery.Enabled {
		log.Warnf("Gateway discovery cannot be disabled. Discovery will be used for all connections")
	}
	if fc.GatewayDiscovery.AsLocalhost {
		if err := p.mapToLocalhost(); err != nil {
			return nil, err
		}
	}
	log.Infof("Loaded connection profile %s for organization %s", name, p.Organization)
	return p, nil
}

func (p *Profile) ensureCredentialStore(client map[string]interface{}, defaultPath string) string {
	store := utils.GetMapMap(client, "credentialStore")
	if store == nil {
		log.Infof("Using credential store %s", defaultPath)
		store = map[string]interface{}{"path": defaultPath}
		client["credentialStore"] = store
	}
	cryptoStore := utils.GetMapMap(store, "cryptoStore")
	if cryptoStore == nil {
		cryptoStore = map[string]interface{}{
			"path": path.Join(utils.GetMapString(store, "path"), "msp"),
		}
		store["cryptoStore"] = cryptoStore
	}
	return utils.GetMapString(cryptoStore, "path")
}

// mapToLocalhost points every configured endpoint at localhost, keeping
// the original host name for TLS verification. Endpoints found through
// discovery are mapped the same way by entity matchers
func (p *Profile) mapToLocalhost() error {
	matchers := map[string]interface{}{}
	for section, matcher := range map[string]string{"peers": "peer", "orderers": "orderer", "certificateAuthorities": ""} {
		entities := utils.GetMapMap(p.network, section)
		names := make([]string, 0, len(entities))
		for name := range entities {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entity, ok := entities[name].(map[string]interface{})
			if !ok {
				continue
			}
			if err := rewriteToLocalhost(name, entity, matcher != ""); err != nil {
				return err
			}
		}
		if matcher != "" && len(names) > 0 {
			matchers[matcher] = []interface{}{
				map[string]interface{}{
					"pattern":                             `([^:]+):(\d+)`,
					"urlSubstitutionExp":                  localhost + ":${2}",
					"sslTargetOverrideUrlSubstitutionExp": "${1}",
					"mappedHost":                          names[0],
				},
			}
		}
	}
	if _, ok := p.network["entityMatchers"]; !ok && len(matchers) > 0 {
		p.network["entityMatchers"] = matchers
	}
	return nil
}

func rewriteToLocalhost(name string, entity map[string]interface{}, grpc bool) error {
	rawURL := utils.GetMapString(entity, "url")
	if rawURL == "" {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Errorf(errors.ProfileInvalidURL, rawURL, name, err)
	}
	host := u.Hostname()
	if host == "" || host == localhost {
		return nil
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(localhost, port)
	} else {
		u.Host = localhost
	}
	entity["url"] = u.String()
	if grpc {
		grpcOptions := utils.GetMapMap(entity, "grpcOptions")
		if grpcOptions == nil {
			grpcOptions = map[string]interface{}{}
			entity["grpcOptions"] = grpcOptions
		}
		if _, ok := grpcOptions[sslTargetOverrideKey]; !ok {
			grpcOptions[sslTargetOverrideKey] = host
		}
	}
	log.Debugf("Mapped %s to %s", rawURL, u.String())
	return nil
}

// JSON is the adjusted profile, serialized for the SDK
func (p *Profile) JSON() ([]byte, error) {
	return json.Marshal(p.network)
}

// ConfigProvider supplies the adjusted profile to the SDK
func (p *Profile) ConfigProvider() core.ConfigProvider {
	b, _ := p.JSON()
	return config.FromRaw(b, "json")
}
