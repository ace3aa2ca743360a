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
	"context"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	log "github.com/sirupsen/logrus"
)

const (
	consumerReconnectDelay = 5 * time.Second
)

// GoRoutines are the loops a transport runs over the consumer and producer
type GoRoutines interface {
	ConsumerMessagesLoop(consumer Consumer, producer Producer, wg *sync.WaitGroup)
	ProducerErrorLoop(consumer Consumer, producer Producer, wg *sync.WaitGroup)
	ProducerSuccessLoop(consumer Consumer, producer Producer, wg *sync.WaitGroup)
}

// Producer is the subset of a sarama async producer the bridge uses
type Producer interface {
	AsyncClose()
	Input() chan<- *sarama.ProducerMessage
	Successes() <-chan *sarama.ProducerMessage
	Errors() <-chan *sarama.ProducerError
}

// Consumer wraps a consumer group behind a simple channel interface
type Consumer interface {
	Close() error
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan error
	MarkOffset(*sarama.ConsumerMessage, string)
}

// Factory builds new clients
type Factory interface {
	NewClient(Common, *sarama.Config) (Client, error)
}

// Client is the kafka client
type Client interface {
	NewProducer(Common) (Producer, error)
	NewConsumer(Common) (Consumer, error)
	Brokers() []*sarama.Broker
}

// SaramaKafkaFactory - uses sarama
type SaramaKafkaFactory struct{}

// NewClient - returns a new client
func (f *SaramaKafkaFactory) NewClient(k Common, clientConf *sarama.Config) (Client, error) {
	client, err := sarama.NewClient(k.Conf().Brokers, clientConf)
	if err != nil {
		return nil, err
	}
	return &saramaKafkaClient{client: client}, nil
}

type saramaKafkaClient struct {
	client sarama.Client
}

func (c *saramaKafkaClient) Brokers() []*sarama.Broker {
	return c.client.Brokers()
}

func (c *saramaKafkaClient) NewProducer(_ Common) (Producer, error) {
	return sarama.NewAsyncProducerFromClient(c.client)
}

func (c *saramaKafkaClient) NewConsumer(k Common) (Consumer, error) {
	return newConsumerGroupHandler(
		&saramaConsumerGroupFactory{},
		c.client, k.Conf().ConsumerGroup,
		[]string{k.Conf().TopicIn},
		consumerReconnectDelay), nil
}

type consumerGroupFactory interface {
	NewConsumerGroupFromClient(groupID string, client sarama.Client) (sarama.ConsumerGroup, error)
}

type saramaConsumerGroupFactory struct{}

func (f *saramaConsumerGroupFactory) NewConsumerGroupFromClient(groupID string, client sarama.Client) (sarama.ConsumerGroup, error) {
	return sarama.NewConsumerGroupFromClient(groupID, client)
}

// consumerGroupHandler re-joins the group after every session ends,
// until it is closed
type consumerGroupHandler struct {
	group          string
	topics         []string
	f              consumerGroupFactory
	c              sarama.Client
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	messages       chan *sarama.ConsumerMessage
	errors         chan error
	mux            sync.Mutex
	session        sarama.ConsumerGroupSession
	done           chan struct{}
}

func newConsumerGroupHandler(f consumerGroupFactory, c sarama.Client, group string, topics []string, reconnectDelay time.Duration) *consumerGroupHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &consumerGroupHandler{
		group:          group,
		topics:         topics,
		f:              f,
		c:              c,
		reconnectDelay: reconnectDelay,
		ctx:            ctx,
		cancel:         cancel,
		messages:       make(chan *sarama.ConsumerMessage),
		errors:         make(chan error),
		done:           make(chan struct{}),
	}
	go h.consumerGoRoutine()
	return h
}

func (h *consumerGroupHandler) consumerGoRoutine() {
	defer close(h.done)
	for h.ctx.Err() == nil {
		log.Infof("Kafka consumer starting. Group: '%s' Topics: %+v", h.group, h.topics)
		if err := h.consumeSession(); err != nil {
			log.Errorf("Kafka consumer session ended: %s", err)
		}
		select {
		case <-h.ctx.Done():
		case <-time.After(h.reconnectDelay):
		}
	}
	close(h.errors)
	close(h.messages)
}

func (h *consumerGroupHandler) consumeSession() error {
	cg, err := h.f.NewConsumerGroupFromClient(h.group, h.c)
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range cg.Errors() {
			select {
			case h.errors <- err:
			case <-h.ctx.Done():
			}
		}
	}()
	err = cg.Consume(h.ctx, h.topics, h)
	cg.Close()
	wg.Wait()
	return err
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.mux.Lock()
	h.session = session
	h.mux.Unlock()
	log.Infof("Consumer session setup. Claims=%+v Member=%s Generation=%d", session.Claims(), session.MemberID(), session.GenerationID())
	return nil
}

func (h *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	log.Infof("Consumer session cleanup. Claims=%+v Member=%s Generation=%d", session.Claims(), session.MemberID(), session.GenerationID())
	h.mux.Lock()
	h.session = nil
	h.mux.Unlock()
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(_ sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		select {
		case h.messages <- msg:
		case <-h.ctx.Done():
			return nil
		}
	}
	return nil
}

// Close stops the consumer, and waits for the message channel to close
func (h *consumerGroupHandler) Close() error {
	h.cancel()
	<-h.done
	return nil
}

func (h *consumerGroupHandler) Messages() <-chan *sarama.ConsumerMessage {
	return h.messages
}

func (h *consumerGroupHandler) Errors() <-chan error {
	return h.errors
}

func (h *consumerGroupHandler) MarkOffset(msg *sarama.ConsumerMessage, metadata string) {
	h.mux.Lock()
	session := h.session
	h.mux.Unlock()
	if session != nil {
		session.MarkMessage(msg, metadata)
	}
}
