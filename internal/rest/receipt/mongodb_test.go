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
	"fmt"
	"testing"
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/test"
	"github.com/stretchr/testify/assert"
)

type mockMongo struct {
	connErr        error
	collection     mockCollection
	url            string
	databaseName   string
	collectionName string
	closed         bool
}

func (m *mockMongo) Connect(url string, timeout time.Duration) error {
	m.url = url
	return m.connErr
}

func (m *mockMongo) GetCollection(database string, collection string) MongoCollection {
	m.databaseName = database
	m.collectionName = collection
	return &m.collection
}

func (m *mockMongo) Close() {
	m.closed = true
}

type mockCollection struct {
	inserted       map[string]interface{}
	insertErr      error
	collInfo       *mgo.CollectionInfo
	collErr        error
	indexes        []mgo.Index
	ensureIndexErr error
	mockQuery      mockQuery
	captureQuery   interface{}
}

func (m *mockCollection) Insert(payloads ...interface{}) error {
	m.inserted = payloads[0].(map[string]interface{})
	return m.insertErr
}

func (m *mockCollection) Create(info *mgo.CollectionInfo) error {
	m.collInfo = info
	return m.collErr
}

func (m *mockCollection) Find(query interface{}) MongoQuery {
	m.captureQuery = query
	return &m.mockQuery
}

func (m *mockCollection) EnsureIndex(index mgo.Index) error {
	m.indexes = append(m.indexes, index)
	return m.ensureIndexErr
}

type mockQuery struct {
	allErr        error
	oneErr        error
	resultWranger func(interface{})
	limit         int
	skip          int
	sort          []string
}

func (m *mockQuery) Limit(n int) *mgo.Query {
	m.limit = n
	return nil
}

func (m *mockQuery) Skip(n int) *mgo.Query {
	m.skip = n
	return nil
}

func (m *mockQuery) Sort(fields ...string) *mgo.Query {
	m.sort = fields
	return nil
}

func (m *mockQuery) All(result interface{}) error {
	if m.resultWranger != nil {
		m.resultWranger(result)
	}
	return m.allErr
}

func (m *mockQuery) One(result interface{}) error {
	if m.resultWranger != nil {
		m.resultWranger(result)
	}
	return m.oneErr
}

func newTestMongoReceipts(t *testing.T) (*mongoReceipts, *mockMongo) {
	tmpdir, testConfig := test.Setup()
	t.Cleanup(func() { test.Teardown(tmpdir) })
	testConfig.Receipts.MongoDB.URL = "mongodb://localhost:27017"
	testConfig.Receipts.MongoDB.Database = "loyalty"
	testConfig.Receipts.MongoDB.Collection = "receipts"
	mgoMock := &mockMongo{}
	return &mongoReceipts{
		config: &testConfig.Receipts,
		mgo:    mgoMock,
	}, mgoMock
}

func twoResults(result interface{}) {
	resArray := result.(*[]map[string]interface{})
	*resArray = append(*resArray,
		map[string]interface{}{"_id": "req2"},
		map[string]interface{}{"_id": "req1"},
	)
}

func TestNewMongoReceipts(t *testing.T) {
	_, testConfig := test.Setup()
	r := newMongoReceipts(&testConfig.Receipts)
	assert.Equal(t, testConfig.Receipts, *(r.config))
	assert.IsType(t, &mgoWrapper{}, r.mgo)
}

func TestMongoReceiptsValidateConf(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestMongoReceipts(t)
	r.config.QueryLimit = 0
	assert.NoError(r.ValidateConf())
	assert.Equal(100, r.config.QueryLimit)

	r.config.MongoDB.Collection = ""
	assert.EqualError(r.ValidateConf(), "MongoDB URL, Database and Collection name must be specified to enable the receipt store")
}

func TestMongoReceiptsConnectOK(t *testing.T) {
	assert := assert.New(t)
	r, mgoMock := newTestMongoReceipts(t)
	r.config.MaxDocs = 123

	err := r.Init()
	assert.NoError(err)
	assert.Equal("mongodb://localhost:27017", mgoMock.url)
	assert.Equal("loyalty", mgoMock.databaseName)
	assert.Equal("receipts", mgoMock.collectionName)
	assert.True(mgoMock.collection.collInfo.Capped)
	assert.Equal(123, mgoMock.collection.collInfo.MaxDocs)
	assert.Len(mgoMock.collection.indexes, 2)
	assert.Equal([]string{"receivedAt"}, mgoMock.collection.indexes[0].Key)
	assert.Equal([]string{"headers.signer", "-receivedAt"}, mgoMock.collection.indexes[1].Key)
	assert.Equal(mongoConnectTimeout, r.config.MongoDB.ConnectTimeoutMS)

	r.Close()
	assert.True(mgoMock.closed)
}

func TestMongoReceiptsConnectErrors(t *testing.T) {
	assert := assert.New(t)

	r, mgoMock := newTestMongoReceipts(t)
	mgoMock.connErr = fmt.Errorf("pop")
	assert.Regexp("Unable to connect to MongoDB: pop", r.Init())

	r, mgoMock = newTestMongoReceipts(t)
	mgoMock.collection.collErr = fmt.Errorf("exists")
	assert.NoError(r.Init())

	r, mgoMock = newTestMongoReceipts(t)
	mgoMock.collection.ensureIndexErr = fmt.Errorf("pop")
	assert.Regexp("Unable to create index: pop", r.Init())
}

func TestMongoReceiptsAddReceipt(t *testing.T) {
	assert := assert.New(t)
	r, mgoMock := newTestMongoReceipts(t)
	assert.NoError(r.Init())

	receipt := map[string]interface{}{"_id": "req1"}
	assert.NoError(r.AddReceipt("req1", &receipt))
	assert.Equal("req1", mgoMock.collection.inserted["_id"])

	mgoMock.collection.insertErr = &mgo.LastError{Code: 11000, Err: "E11000 duplicate key"}
	assert.EqualError(r.AddReceipt("req1", &receipt), "A receipt already exists for request req1")

	mgoMock.collection.insertErr = fmt.Errorf("pop")
	assert.EqualError(r.AddReceipt("req1", &receipt), "pop")
}

func TestMongoReceiptsGetReceiptsOK(t *testing.T) {
	assert := assert.New(t)
	r, mgoMock := newTestMongoReceipts(t)
	mgoMock.collection.mockQuery.resultWranger = twoResults
	assert.NoError(r.Init())

	results, err := r.GetReceipts(5, 2, nil, 0, "")
	assert.NoError(err)
	assert.Equal(bson.M{}, mgoMock.collection.captureQuery)
	assert.Equal([]string{"-receivedAt"}, mgoMock.collection.mockQuery.sort)
	assert.Equal(5, mgoMock.collection.mockQuery.skip)
	assert.Equal(2, mgoMock.collection.mockQuery.limit)
	assert.Equal("req2", (*results)[0]["_id"])
	assert.Equal("req1", (*results)[1]["_id"])
}

func TestMongoReceiptsFilter(t *testing.T) {
	assert := assert.New(t)
	r, mgoMock := newTestMongoReceipts(t)
	mgoMock.collection.mockQuery.resultWranger = twoResults
	assert.NoError(r.Init())

	sinceMS := time.Now().UnixNano() / int64(time.Millisecond)
	_, err := r.GetReceipts(0, 0, []string{"req1", "req2"}, sinceMS, "card1")
	assert.NoError(err)
	queryBSON := mgoMock.collection.captureQuery.(bson.M)
	assert.Equal([]string{"req1", "req2"}, queryBSON["_id"].(bson.M)["$in"])
	assert.Equal(sinceMS, queryBSON["receivedAt"].(bson.M)["$gt"])
	assert.Equal("card1", queryBSON["headers.signer"])
	assert.Equal(0, mgoMock.collection.mockQuery.skip)
	assert.Equal(0, mgoMock.collection.mockQuery.limit)
}

func TestMongoReceiptsGetReceiptsErrors(t *testing.T) {
	assert := assert.New(t)
	r, mgoMock := newTestMongoReceipts(t)
	assert.NoError(r.Init())

	mgoMock.collection.mockQuery.allErr = mgo.ErrNotFound
	results, err := r.GetReceipts(5, 2, nil, 0, "")
	assert.NoError(err)
	assert.Len(*results, 0)

	mgoMock.collection.mockQuery.allErr = fmt.Errorf("pop")
	_, err = r.GetReceipts(5, 2, nil, 0, "")
	assert.Regexp("pop", err)
}

func TestMongoReceiptsGetReceipt(t *testing.T) {
	assert := assert.New(t)
	r, mgoMock := newTestMongoReceipts(t)
	mgoMock.collection.mockQuery.resultWranger = func(result interface{}) {
		*(result.(*map[string]interface{})) = map[string]interface{}{"_id": "req1", "transactionID": "tx1"}
	}
	assert.NoError(r.Init())

	result, err := r.GetReceipt("req1")
	assert.NoError(err)
	assert.Equal(bson.M{"_id": "req1"}, mgoMock.collection.captureQuery)
	assert.Equal("tx1", (*result)["transactionID"])

	mgoMock.collection.mockQuery.oneErr = mgo.ErrNotFound
	result, err = r.GetReceipt("req1")
	assert.NoError(err)
	assert.Nil(result)

	mgoMock.collection.mockQuery.oneErr = fmt.Errorf("pop")
	_, err = r.GetReceipt("req1")
	assert.Regexp("pop", err)
}
