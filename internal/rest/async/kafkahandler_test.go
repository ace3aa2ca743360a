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

package async

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/kafka"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	mockreceipt "github.com/hyperledger/firefly-loyaltyconnect/mocks/rest/receipt"
	mocktx "github.com/hyperledger/firefly-loyaltyconnect/mocks/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testKafkaConf() conf.KafkaConf {
	kconf := conf.KafkaConf{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "loyaltyconnect",
		TopicIn:       "loyalty-requests",
		TopicOut:      "loyalty-requests",
	}
	return kconf
}

type kafkaTestHarness struct {
	handler   *kafkaHandler
	factory   *kafka.MockKafkaFactory
	processor *mocktx.TxProcessor
	receipts  *mockreceipt.ReceiptStore
	done      chan error
}

func startKafkaHandler(t *testing.T) *kafkaTestHarness {
	h := &kafkaTestHarness{
		factory:   kafka.NewMockKafkaFactory(),
		processor: mocktx.NewTxProcessor(t),
		receipts:  mockreceipt.NewReceiptStore(t),
		done:      make(chan error, 1),
	}
	h.handler = newKafkaHandler(testKafkaConf(), h.factory, h.processor, h.receipts)
	assert.NoError(t, h.handler.validateHandlerConf())
	go func() { h.done <- h.handler.run() }()
	assert.Eventually(t, h.handler.isInitialized, time.Second, 5*time.Millisecond)
	return h
}

func (h *kafkaTestHarness) stop(t *testing.T) {
	h.handler.close()
	assert.NoError(t, <-h.done)
}

func TestKafkaHandlerDispatchWithAck(t *testing.T) {
	assert := assert.New(t)
	h := startKafkaHandler(t)
	defer h.stop(t)

	auth.RegisterSecurityModule(&tokenSecurity{})
	defer auth.RegisterSecurityModule(nil)
	ctx, _ := auth.WithAuthContext(context.Background(), "alice")

	go func() {
		msg := <-h.factory.Producer.MockInput
		assert.Equal("loyalty-requests", msg.Topic)
		key, _ := msg.Key.Encode()
		assert.Equal("card1", string(key))
		assert.Equal(messages.RecordHeaderAccessToken, string(msg.Headers[0].Key))
		assert.Equal("alice", string(msg.Headers[0].Value))
		value, _ := msg.Value.Encode()
		var payload map[string]interface{}
		assert.NoError(json.Unmarshal(value, &payload))
		assert.Equal("msg1", payload["headers"].(map[string]interface{})["id"])
		msg.Partition = 3
		msg.Offset = 42
		h.factory.Producer.MockSuccesses <- msg
	}()

	msg := registerMemberMsg()
	msg["headers"].(map[string]interface{})["id"] = "msg1"
	msgAck, status, err := h.handler.dispatchMsg(ctx, "card1", "msg1", msg, true)
	assert.NoError(err)
	assert.Equal(200, status)
	assert.Equal("loyalty-requests:3:42", msgAck)
}

func TestKafkaHandlerDispatchNoAck(t *testing.T) {
	assert := assert.New(t)
	h := startKafkaHandler(t)
	defer h.stop(t)

	go func() {
		msg := <-h.factory.Producer.MockInput
		assert.Empty(msg.Headers)
	}()
	msgAck, status, err := h.handler.dispatchMsg(context.Background(), "card1", "msg1", registerMemberMsg(), false)
	assert.NoError(err)
	assert.Equal(200, status)
	assert.Empty(msgAck)
}

func TestKafkaHandlerDispatchFailed(t *testing.T) {
	assert := assert.New(t)
	h := startKafkaHandler(t)
	defer h.stop(t)

	go func() {
		msg := <-h.factory.Producer.MockInput
		h.factory.Producer.MockErrors <- &sarama.ProducerError{Msg: msg, Err: fmt.Errorf("pop")}
	}()
	_, status, err := h.handler.dispatchMsg(context.Background(), "card1", "msg1", registerMemberMsg(), true)
	assert.Equal(502, status)
	assert.Regexp("Failed to deliver message to Kafka: .*pop", err)
}

func TestKafkaHandlerUnserializable(t *testing.T) {
	h := newKafkaHandler(testKafkaConf(), kafka.NewMockKafkaFactory(), mocktx.NewTxProcessor(t), mockreceipt.NewReceiptStore(t))
	_, status, err := h.dispatchMsg(context.Background(), "card1", "msg1", map[string]interface{}{"bad": make(chan bool)}, true)
	assert.Equal(t, 500, status)
	assert.Regexp(t, "Unable to reserialize message payload as JSON", err)
}

func TestKafkaHandlerConsumesRequests(t *testing.T) {
	assert := assert.New(t)
	h := startKafkaHandler(t)
	defer h.stop(t)

	auth.RegisterSecurityModule(&tokenSecurity{})
	defer auth.RegisterSecurityModule(nil)

	h.processor.On("OnMessage", mock.Anything).Run(func(args mock.Arguments) {
		txContext := args[0].(tx.TxContext)
		assert.Equal("user:alice", auth.GetAuthContext(txContext.Context()))
		assert.Equal("req1", txContext.Headers().ID)
		replySuccess(txContext)
	}).Once()
	stored := expectReceipt(h.receipts)

	msg := registerMemberMsg()
	msg["headers"].(map[string]interface{})["id"] = "req1"
	value, _ := json.Marshal(msg)
	h.factory.Consumer.MockMessages <- &sarama.ConsumerMessage{
		Topic:     "loyalty-requests",
		Partition: 1,
		Offset:    7,
		Value:     value,
		Headers: []*sarama.RecordHeader{
			{Key: []byte(messages.RecordHeaderAccessToken), Value: []byte("alice")},
		},
	}

	receipt := <-stored
	headers := receipt["headers"].(map[string]interface{})
	assert.Equal("req1", headers["requestId"])
	assert.Equal("loyalty-requests:1:7", headers["requestOffset"])
	assert.Eventually(func() bool {
		offset, err := h.factory.Consumer.MarkedOffset(1)
		return err == nil && offset == 7
	}, time.Second, 5*time.Millisecond)
}

func TestKafkaHandlerConsumedWithoutID(t *testing.T) {
	assert := assert.New(t)
	h := startKafkaHandler(t)
	defer h.stop(t)

	h.processor.On("OnMessage", mock.Anything).Run(func(args mock.Arguments) {
		replySuccess(args[0].(tx.TxContext))
	}).Once()
	stored := expectReceipt(h.receipts)

	value, _ := json.Marshal(registerMemberMsg())
	h.factory.Consumer.MockMessages <- &sarama.ConsumerMessage{Topic: "loyalty-requests", Value: value}
	receipt := <-stored
	assert.NotEmpty(receipt["headers"].(map[string]interface{})["requestId"])
}

func TestKafkaHandlerConsumedUnauthorized(t *testing.T) {
	assert := assert.New(t)
	h := startKafkaHandler(t)
	defer h.stop(t)

	auth.RegisterSecurityModule(&tokenSecurity{})
	defer auth.RegisterSecurityModule(nil)

	stored := expectReceipt(h.receipts)
	value, _ := json.Marshal(registerMemberMsg())
	h.factory.Consumer.MockMessages <- &sarama.ConsumerMessage{
		Topic:   "loyalty-requests",
		Value:   value,
		Headers: []*sarama.RecordHeader{{Key: []byte(messages.RecordHeaderAccessToken), Value: []byte("bad")}},
	}
	receipt := <-stored
	assert.Equal(messages.MsgTypeError, receipt["headers"].(map[string]interface{})["type"])
	assert.Equal("Unauthorized", receipt["errorMessage"])
}

func TestKafkaHandlerConsumedBadJSON(t *testing.T) {
	h := startKafkaHandler(t)
	defer h.stop(t)

	h.factory.Consumer.MockMessages <- &sarama.ConsumerMessage{Topic: "loyalty-requests", Partition: 2, Offset: 9, Value: []byte("!json")}
	assert.Eventually(t, func() bool {
		offset, err := h.factory.Consumer.MarkedOffset(2)
		return err == nil && offset == 9
	}, time.Second, 5*time.Millisecond)
}

func TestKafkaHandlerStartFailure(t *testing.T) {
	h := newKafkaHandler(testKafkaConf(), kafka.NewErrorMockKafkaFactory(fmt.Errorf("pop"), nil, nil), mocktx.NewTxProcessor(t), mockreceipt.NewReceiptStore(t))
	assert.EqualError(t, h.run(), "pop")
	assert.True(t, h.isInitialized())
}
