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
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type execCall struct {
	query string
	args  []interface{}
}

type testSQLDatabase struct {
	execs     []execCall
	execErrs  []error
	selectSQL string
	selectArg []interface{}
	rows      []receiptRow
	selectErr error
	getErr    error
	closed    bool
}

func (d *testSQLDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	d.execs = append(d.execs, execCall{query: query, args: args})
	if len(d.execErrs) > 0 {
		err := d.execErrs[0]
		d.execErrs = d.execErrs[1:]
		return nil, err
	}
	return nil, nil
}

func (d *testSQLDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	d.selectSQL = query
	d.selectArg = args
	reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(d.rows))
	return d.selectErr
}

func (d *testSQLDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	if d.getErr != nil {
		return d.getErr
	}
	if len(d.rows) == 0 {
		return sql.ErrNoRows
	}
	*(dest.(*receiptRow)) = d.rows[0]
	return nil
}

func (d *testSQLDatabase) Close() error {
	d.closed = true
	return nil
}

func newTestPostgresReceipts(t *testing.T, db *testSQLDatabase) *postgresReceipts {
	config := &conf.ReceiptsDBConf{MaxDocs: 50}
	config.PostgreSQL.DSN = "postgres://localhost/loyalty?sslmode=disable"
	p := newPostgresReceipts(config)
	p.connect = func(driverName, dsn string) (SQLDatabase, error) {
		assert.Equal(t, "postgres", driverName)
		assert.Equal(t, config.PostgreSQL.DSN, dsn)
		return db, nil
	}
	return p
}

func row(id, signer string) receiptRow {
	body, _ := json.Marshal(map[string]interface{}{"_id": id, "headers": map[string]interface{}{"signer": signer}})
	return receiptRow{ID: id, Signer: signer, Body: body}
}

func TestPostgresValidateConf(t *testing.T) {
	assert := assert.New(t)
	p := newPostgresReceipts(&conf.ReceiptsDBConf{})
	assert.NoError(p.ValidateConf())
	assert.Equal("receipts", p.table)
	assert.Equal(100, p.config.QueryLimit)

	p.config.PostgreSQL.Table = "receipts; DROP TABLE members"
	assert.EqualError(p.ValidateConf(), "Invalid PostgreSQL table name 'receipts; DROP TABLE members'")
}

func TestPostgresInitMigrates(t *testing.T) {
	assert := assert.New(t)
	db := &testSQLDatabase{}
	p := newTestPostgresReceipts(t, db)
	p.config.PostgreSQL.Table = "loyalty_receipts"

	assert.NoError(p.Init())
	assert.Len(db.execs, 3)
	assert.Contains(db.execs[0].query, "CREATE TABLE IF NOT EXISTS loyalty_receipts")
	assert.Contains(db.execs[1].query, "loyalty_receipts_received_at")

	p.Close()
	assert.True(db.closed)
}

func TestPostgresInitFailures(t *testing.T) {
	assert := assert.New(t)

	p := newPostgresReceipts(&conf.ReceiptsDBConf{})
	p.connect = func(driverName, dsn string) (SQLDatabase, error) {
		return nil, fmt.Errorf("refused")
	}
	assert.EqualError(p.Init(), "Unable to connect to PostgreSQL: refused")

	db := &testSQLDatabase{execErrs: []error{fmt.Errorf("permission denied")}}
	p = newTestPostgresReceipts(t, db)
	assert.EqualError(p.Init(), "Unable to create the receipts table: permission denied")
	assert.True(db.closed)

	p = newPostgresReceipts(&conf.ReceiptsDBConf{})
	p.config.PostgreSQL.Table = "1bad"
	assert.Error(p.Init())
	p.Close()
}

func TestPostgresAddReceipt(t *testing.T) {
	assert := assert.New(t)
	db := &testSQLDatabase{}
	p := newTestPostgresReceipts(t, db)
	assert.NoError(p.Init())
	db.execs = nil

	receipt := map[string]interface{}{
		"_id":        "req1",
		"receivedAt": int64(1625097600000),
		"headers":    map[string]interface{}{"signer": "card1"},
	}
	assert.NoError(p.AddReceipt("req1", &receipt))
	assert.Len(db.execs, 2)
	assert.True(strings.HasPrefix(db.execs[0].query, "INSERT INTO receipts"))
	assert.Equal("req1", db.execs[0].args[0])
	assert.Equal("card1", db.execs[0].args[1])
	assert.Equal(int64(1625097600000), db.execs[0].args[2])
	assert.Contains(db.execs[1].query, "OFFSET $1")
	assert.Equal(50, db.execs[1].args[0])

	db.execErrs = []error{nil, fmt.Errorf("trim failed")}
	assert.NoError(p.AddReceipt("req2", &receipt))

	db.execErrs = []error{fmt.Errorf("duplicate key value violates unique constraint")}
	assert.Regexp("duplicate key", p.AddReceipt("req1", &receipt))
}

func TestPostgresGetReceipts(t *testing.T) {
	assert := assert.New(t)
	db := &testSQLDatabase{rows: []receiptRow{row("req2", "card1"), row("req1", "card1")}}
	p := newTestPostgresReceipts(t, db)
	assert.NoError(p.Init())

	results, err := p.GetReceipts(5, 2, nil, 0, "")
	assert.NoError(err)
	assert.Equal("SELECT id, signer, received_at, body FROM receipts ORDER BY received_at DESC LIMIT $1 OFFSET $2", db.selectSQL)
	assert.Equal([]interface{}{2, 5}, db.selectArg)
	assert.Len(*results, 2)
	assert.Equal("req2", (*results)[0]["_id"])

	_, err = p.GetReceipts(0, 0, []string{"req1", "req2"}, 1625097600000, "card1")
	assert.NoError(err)
	assert.Equal("SELECT id, signer, received_at, body FROM receipts WHERE id = ANY($1) AND received_at > $2 AND signer = $3 ORDER BY received_at DESC", db.selectSQL)
	assert.Equal(pq.Array([]string{"req1", "req2"}), db.selectArg[0])
	assert.Equal(int64(1625097600000), db.selectArg[1])
	assert.Equal("card1", db.selectArg[2])
}

func TestPostgresGetReceiptsErrors(t *testing.T) {
	assert := assert.New(t)
	db := &testSQLDatabase{selectErr: fmt.Errorf("pop")}
	p := newTestPostgresReceipts(t, db)
	assert.NoError(p.Init())
	_, err := p.GetReceipts(0, 10, nil, 0, "")
	assert.EqualError(err, "pop")

	db.selectErr = nil
	db.rows = []receiptRow{{ID: "bad", Body: []byte("!json")}}
	_, err = p.GetReceipts(0, 10, nil, 0, "")
	assert.Error(err)
}

func TestPostgresGetReceipt(t *testing.T) {
	assert := assert.New(t)
	db := &testSQLDatabase{}
	p := newTestPostgresReceipts(t, db)
	assert.NoError(p.Init())

	result, err := p.GetReceipt("req1")
	assert.NoError(err)
	assert.Nil(result)

	db.rows = []receiptRow{row("req1", "card1")}
	result, err = p.GetReceipt("req1")
	assert.NoError(err)
	assert.Equal("req1", (*result)["_id"])

	db.getErr = fmt.Errorf("pop")
	_, err = p.GetReceipt("req1")
	assert.EqualError(err, "pop")
}
