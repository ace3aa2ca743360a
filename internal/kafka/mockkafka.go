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

package kafka

import (
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
)

// MockKafkaFactory - mock
type MockKafkaFactory struct {
	ClientConf         *sarama.Config
	ErrorOnNewClient   error
	ErrorOnNewProducer error
	ErrorOnNewConsumer error
	Producer           *MockKafkaProducer
	Consumer           *MockKafkaConsumer
}

// NewMockKafkaFactory - mock
func NewMockKafkaFactory() *MockKafkaFactory {
	return &MockKafkaFactory{}
}

// NewErrorMockKafkaFactory - mock
func NewErrorMockKafkaFactory(errorOnNewClient error, errorOnNewConsumer error, errorOnNewProducer error) *MockKafkaFactory {
	f := NewMockKafkaFactory()
	f.ErrorOnNewClient = errorOnNewClient
	f.ErrorOnNewConsumer = errorOnNewConsumer
	f.ErrorOnNewProducer = errorOnNewProducer
	return f
}

// NewClient - mock
func (f *MockKafkaFactory) NewClient(k Common, clientConf *sarama.Config) (Client, error) {
	f.ClientConf = clientConf
	return f, f.ErrorOnNewClient
}

// Brokers - mock
func (f *MockKafkaFactory) Brokers() []*sarama.Broker {
	return []*sarama.Broker{{}}
}

// NewProducer - mock
func (f *MockKafkaFactory) NewProducer(k Common) (Producer, error) {
	f.Producer = &MockKafkaProducer{
		MockInput:     make(chan *sarama.ProducerMessage),
		MockSuccesses: make(chan *sarama.ProducerMessage),
		MockErrors:    make(chan *sarama.ProducerError),
	}
	return f.Producer, f.ErrorOnNewProducer
}

// NewConsumer - mock
func (f *MockKafkaFactory) NewConsumer(k Common) (Consumer, error) {
	f.Consumer = &MockKafkaConsumer{
		MockMessages: make(chan *sarama.ConsumerMessage),
		MockErrors:   make(chan error),
	}
	return f.Consumer, f.ErrorOnNewConsumer
}

// MockKafkaProducer - mock
type MockKafkaProducer struct {
	MockInput     chan *sarama.ProducerMessage
	MockSuccesses chan *sarama.ProducerMessage
	MockErrors    chan *sarama.ProducerError
	closeOnce     sync.Once
}

// AsyncClose - mock
func (p *MockKafkaProducer) AsyncClose() {
	p.closeOnce.Do(func() {
		close(p.MockSuccesses)
		close(p.MockErrors)
	})
}

// Input - mock
func (p *MockKafkaProducer) Input() chan<- *sarama.ProducerMessage {
	return p.MockInput
}

// Successes - mock
func (p *MockKafkaProducer) Successes() <-chan *sarama.ProducerMessage {
	return p.MockSuccesses
}

// Errors - mock
func (p *MockKafkaProducer) Errors() <-chan *sarama.ProducerError {
	return p.MockErrors
}

// MockKafkaConsumer - mock
type MockKafkaConsumer struct {
	MockMessages       chan *sarama.ConsumerMessage
	MockErrors         chan error
	OffsetsByPartition map[int32]int64
	mux                sync.Mutex
	closeOnce          sync.Once
}

// Close - mock
func (c *MockKafkaConsumer) Close() error {
	c.closeOnce.Do(func() {
		close(c.MockMessages)
		close(c.MockErrors)
	})
	return nil
}

// Messages - mock
func (c *MockKafkaConsumer) Messages() <-chan *sarama.ConsumerMessage {
	return c.MockMessages
}

// Errors - mock
func (c *MockKafkaConsumer) Errors() <-chan error {
	return c.MockErrors
}

// MarkOffset - mock
func (c *MockKafkaConsumer) MarkOffset(msg *sarama.ConsumerMessage, metadata string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.OffsetsByPartition == nil {
		c.OffsetsByPartition = make(map[int32]int64)
	}
	c.OffsetsByPartition[msg.Partition] = msg.Offset
}

// MarkedOffset returns the last offset marked for a partition
func (c *MockKafkaConsumer) MarkedOffset(partition int32) (int64, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	offset, ok := c.OffsetsByPartition[partition]
	if !ok {
		return -1, fmt.Errorf("no offset marked for partition %d", partition)
	}
	return offset, nil
}
