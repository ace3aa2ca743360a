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

package receipt

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	log "github.com/sirupsen/logrus"
)

const defaultMemoryMaxDocs = 1000

// memoryReceipts keeps the most recent receipts in an LRU keyed by request
// id. Lookups use Peek, so the eviction order stays the insertion order.
type memoryReceipts struct {
	config *conf.ReceiptsDBConf
	cache  *lru.Cache
	mux    sync.Mutex
}

func memoryCapacity(config *conf.ReceiptsDBConf) int {
	if config.MaxDocs > 0 {
		return config.MaxDocs
	}
	return defaultMemoryMaxDocs
}

func newMemoryReceipts(config *conf.ReceiptsDBConf) *memoryReceipts {
	cache, _ := lru.New(memoryCapacity(config))
	return &memoryReceipts{
		config: config,
		cache:  cache,
	}
}

func (m *memoryReceipts) ValidateConf() error {
	return nil
}

func (m *memoryReceipts) Init() error {
	capacity := memoryCapacity(m.config)
	if evicted := m.cache.Resize(capacity); evicted > 0 {
		log.Infof("Dropped %d receipts resizing the memory store", evicted)
	}
	log.Debugf("Memory receipt store holding up to %d receipts", capacity)
	return nil
}

func (m *memoryReceipts) GetReceipts(skip, limit int, ids []string, sinceEpochMS int64, signer string) (*[]map[string]interface{}, error) {
	if len(ids) > 0 || sinceEpochMS != 0 || signer != "" {
		return nil, errors.Errorf(errors.KVStoreMemFilteringUnsupported)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	keys := m.cache.Keys()
	results := make([]map[string]interface{}, 0, limit)
	for i := len(keys) - 1 - skip; i >= 0; i-- {
		if limit > 0 && len(results) >= limit {
			break
		}
		if v, ok := m.cache.Peek(keys[i]); ok {
			results = append(results, *v.(*map[string]interface{}))
		}
	}
	return &results, nil
}

func (m *memoryReceipts) GetReceipt(requestID string) (*map[string]interface{}, error) {
	v, ok := m.cache.Peek(requestID)
	if !ok {
		return nil, nil
	}
	r := *v.(*map[string]interface{})
	return &r, nil
}

func (m *memoryReceipts) AddReceipt(requestID string, receipt *map[string]interface{}) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	if m.cache.Contains(requestID) {
		return errors.Errorf(errors.ReceiptStoreDuplicate, requestID)
	}
	m.cache.Add(requestID, receipt)
	return nil
}

func (m *memoryReceipts) Close() {
	m.cache.Purge()
}
