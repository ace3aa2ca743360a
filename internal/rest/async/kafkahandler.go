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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Shopify/sarama"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/kafka"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/messages"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	log "github.com/sirupsen/logrus"
)

// kafkaHandler produces requests to Kafka, and runs the requests it
// consumes back through the processor. With topicIn equal to topicOut the
// work is shared across every gateway in the consumer group
type kafkaHandler struct {
	kafka       kafka.Common
	processor   tx.TxProcessor
	receipts    receipt.ReceiptStore
	sendCond    *sync.Cond
	pendingMsgs map[string]bool
	successMsgs map[string]*sarama.ProducerMessage
	failedMsgs  map[string]error
	finished    atomic.Bool
	stopChan    chan error
	closeOnce   sync.Once
}

func newKafkaHandler(kconf conf.KafkaConf, kf kafka.Factory, processor tx.TxProcessor, receipts receipt.ReceiptStore) *kafkaHandler {
	w := &kafkaHandler{
		processor:   processor,
		receipts:    receipts,
		sendCond:    sync.NewCond(&sync.Mutex{}),
		pendingMsgs: make(map[string]bool),
		successMsgs: make(map[string]*sarama.ProducerMessage),
		failedMsgs:  make(map[string]error),
		stopChan:    make(chan error),
	}
	w.kafka = kafka.NewKafkaCommon(kf, kconf, w)
	return w
}

func (w *kafkaHandler) setMsgPending(msgID string) {
	w.sendCond.L.Lock()
	w.pendingMsgs[msgID] = true
	w.sendCond.L.Unlock()
}

func (w *kafkaHandler) waitForSend(msgID string) (msg *sarama.ProducerMessage, err error) {
	w.sendCond.L.Lock()
	for msg == nil && err == nil {
		var found bool
		if err, found = w.failedMsgs[msgID]; found {
			delete(w.failedMsgs, msgID)
		} else if msg, found = w.successMsgs[msgID]; found {
			delete(w.successMsgs, msgID)
		} else {
			w.sendCond.Wait()
		}
	}
	w.sendCond.L.Unlock()
	return
}

func (w *kafkaHandler) consumedContext(msg *sarama.ConsumerMessage) (context.Context, error) {
	ctx := context.Background()
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == messages.RecordHeaderAccessToken {
			return auth.WithAuthContext(ctx, string(h.Value))
		}
	}
	return auth.WithAuthContext(ctx, "")
}

func (w *kafkaHandler) processConsumed(msg *sarama.ConsumerMessage) {
	msgContext, err := newMsgContext(context.Background(), w.receipts, msg.Value)
	if err != nil {
		log.Errorf("%s", errors.Errorf(errors.RequestHandlerKafkaBadRequest, err))
		return
	}
	if msgContext.msgID == "" {
		msgContext.msgID = utils.UUIDv4()
		msgContext.headers.ID = msgContext.msgID
	}
	msgContext.reqOffset = fmt.Sprintf("%s:%d:%d", msg.Topic, msg.Partition, msg.Offset)

	ctx, err := w.consumedContext(msg)
	if err != nil {
		msgContext.SendErrorReply(401, err)
		return
	}
	msgContext.ctx = ctx
	w.processor.OnMessage(msgContext)
}

// ConsumerMessagesLoop - run each request consumed through the processor
func (w *kafkaHandler) ConsumerMessagesLoop(consumer kafka.Consumer, producer kafka.Producer, wg *sync.WaitGroup) {
	for msg := range consumer.Messages() {
		w.processConsumed(msg)

		// Regardless of outcome, we ack
		consumer.MarkOffset(msg, "")
	}
	wg.Done()
}

// ProducerErrorLoop - consume errors
func (w *kafkaHandler) ProducerErrorLoop(consumer kafka.Consumer, producer kafka.Producer, wg *sync.WaitGroup) {
	log.Debugf("Kafka handler listening for errors sending to Kafka")
	for err := range producer.Errors() {
		log.Errorf("Error sending message: %s", err)
		if err.Msg == nil || err.Msg.Metadata == nil {
			// This should not be possible
			panic(errors.Errorf(errors.RequestHandlerKafkaUnexpectedErrFmt, err))
		}
		msgID := err.Msg.Metadata.(string)
		w.sendCond.L.Lock()
		if _, found := w.pendingMsgs[msgID]; found {
			delete(w.pendingMsgs, msgID)
			w.failedMsgs[msgID] = err
			w.sendCond.Broadcast()
		}
		w.sendCond.L.Unlock()
	}
	wg.Done()
}

// ProducerSuccessLoop - consume successes
func (w *kafkaHandler) ProducerSuccessLoop(consumer kafka.Consumer, producer kafka.Producer, wg *sync.WaitGroup) {
	log.Debugf("Kafka handler listening for successful sends to Kafka")
	for msg := range producer.Successes() {
		log.Infof("Kafka handler sent message ok: %s", msg.Metadata)
		if msg.Metadata == nil {
			// This should not be possible
			panic(errors.Errorf(errors.RequestHandlerKafkaDeliveryReportNoMeta, msg))
		}
		msgID := msg.Metadata.(string)
		w.sendCond.L.Lock()
		if _, found := w.pendingMsgs[msgID]; found {
			delete(w.pendingMsgs, msgID)
			w.successMsgs[msgID] = msg
			w.sendCond.Broadcast()
		}
		w.sendCond.L.Unlock()
	}
	wg.Done()
}

func (w *kafkaHandler) dispatchMsg(ctx context.Context, key, msgID string, msg map[string]interface{}, ack bool) (string, int, error) {

	// Reseialize back to JSON with the headers
	payloadToForward, err := marshalRequest(msg)
	if err != nil {
		return "", 500, err
	}
	if ack {
		w.setMsgPending(msgID)
	}

	log.Debugf("Message payload: %s", payloadToForward)
	sentMsg := &sarama.ProducerMessage{
		Topic:    w.kafka.Conf().TopicOut,
		Key:      sarama.StringEncoder(key),
		Value:    sarama.ByteEncoder(payloadToForward),
		Metadata: msgID,
	}
	accessToken := auth.GetAccessToken(ctx)
	if accessToken != "" {
		sentMsg.Headers = []sarama.RecordHeader{
			{
				Key:   []byte(messages.RecordHeaderAccessToken),
				Value: []byte(accessToken),
			},
		}
	}
	w.kafka.Producer().Input() <- sentMsg

	msgAck := ""
	if ack {
		successMsg, err := w.waitForSend(msgID)
		if err != nil {
			return "", 502, errors.Errorf(errors.RequestHandlerKafkaErr, err)
		}
		msgAck = fmt.Sprintf("%s:%d:%d", successMsg.Topic, successMsg.Partition, successMsg.Offset)
	}
	return msgAck, 200, nil
}

func (w *kafkaHandler) validateHandlerConf() error {
	return w.kafka.ValidateConf()
}

func (w *kafkaHandler) run() error {
	err := w.kafka.Start()
	if err == nil {
		err = <-w.stopChan
		w.kafka.Stop()
	}
	w.finished.Store(true)
	return err
}

func (w *kafkaHandler) isInitialized() bool {
	// We mark ourselves as ready once the kafka bridge has constructed its
	// producer, so it can accept messages.
	return w.finished.Load() || w.kafka.Producer() != nil
}

func (w *kafkaHandler) close() {
	w.closeOnce.Do(func() { close(w.stopChan) })
}
