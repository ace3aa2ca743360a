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
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Common is the base interface for the loyalty request bridge over Kafka
type Common interface {
	ValidateConf() error
	Start() error
	Stop()
	Conf() conf.KafkaConf
	Producer() Producer
}

// NewKafkaCommon constructs a new Common instance
func NewKafkaCommon(kf Factory, conf conf.KafkaConf, goRoutines GoRoutines) Common {
	return &kafkaCommon{
		factory:    kf,
		goRoutines: goRoutines,
		conf:       conf,
	}
}

// kafkaCommon provides a base for establishing Kafka connectivity with a
// producer and a consumer-group
type kafkaCommon struct {
	conf         conf.KafkaConf
	factory      Factory
	client       Client
	consumer     Consumer
	consumerWG   sync.WaitGroup
	producer     Producer
	producerWG   sync.WaitGroup
	goRoutines   GoRoutines
	saramaLogger saramaLogger
	stopOnce     sync.Once
}

func (k *kafkaCommon) Conf() conf.KafkaConf {
	return k.conf
}

func (k *kafkaCommon) Producer() Producer {
	return k.producer
}

func (k *kafkaCommon) ValidateConf() error {
	return ValidateConf(k.conf)
}

// ValidateConf validates supplied configuration
func ValidateConf(kconf conf.KafkaConf) error {
	if len(kconf.Brokers) == 0 || kconf.Brokers[0] == "" {
		return errors.Errorf(errors.ConfigKafkaMissingBrokers)
	}
	if kconf.TopicOut == "" {
		return errors.Errorf(errors.ConfigKafkaMissingOutputTopic)
	}
	if kconf.TopicIn == "" {
		return errors.Errorf(errors.ConfigKafkaMissingInputTopic)
	}
	if kconf.ConsumerGroup == "" {
		return errors.Errorf(errors.ConfigKafkaMissingConsumerGroup)
	}
	if !utils.AllOrNoneReqd(kconf.SASL.Username, kconf.SASL.Password) {
		return errors.Errorf(errors.ConfigKafkaMissingBadSASL)
	}
	return nil
}

type saramaLogger struct{}

func (s saramaLogger) Print(v ...interface{}) {
	v = append([]interface{}{"[sarama] "}, v...)
	log.Debug(v...)
}

func (s saramaLogger) Printf(format string, v ...interface{}) {
	log.Debugf("[sarama] "+format, v...)
}

func (s saramaLogger) Println(v ...interface{}) {
	v = append([]interface{}{"[sarama] "}, v...)
	log.Debug(v...)
}

func (k *kafkaCommon) clientConf() (*sarama.Config, error) {
	tlsConfig, err := utils.CreateTLSConfiguration(&k.conf.TLS)
	if err != nil {
		return nil, err
	}

	clientConf := sarama.NewConfig()
	if k.conf.SASL.Username != "" && k.conf.SASL.Password != "" {
		clientConf.Net.SASL.Enable = true
		clientConf.Net.SASL.User = k.conf.SASL.Username
		clientConf.Net.SASL.Password = k.conf.SASL.Password
	}

	clientConf.Producer.Return.Successes = true
	clientConf.Producer.Return.Errors = true
	clientConf.Producer.RequiredAcks = sarama.WaitForLocal
	// Requests for one card share a partition key, so they are consumed in order
	clientConf.Producer.Partitioner = sarama.NewHashPartitioner
	clientConf.Producer.Flush.Frequency = time.Duration(k.conf.ProducerFlush.Frequency) * time.Millisecond
	clientConf.Producer.Flush.Messages = k.conf.ProducerFlush.Messages
	clientConf.Producer.Flush.Bytes = k.conf.ProducerFlush.Bytes
	clientConf.Metadata.Retry.Backoff = 2 * time.Second
	clientConf.Consumer.Return.Errors = true
	clientConf.Version = sarama.V2_0_0_0
	clientConf.Net.TLS.Enable = (tlsConfig != nil)
	clientConf.Net.TLS.Config = tlsConfig
	clientConf.ClientID = k.conf.ClientID
	if clientConf.ClientID == "" {
		clientConf.ClientID = utils.UUIDv4()
	}
	return clientConf, nil
}

func (k *kafkaCommon) connect() error {
	log.Debugf("Kafka Bootstrap brokers: %s", k.conf.Brokers)
	if err := ValidateConf(k.conf); err != nil {
		return err
	}
	sarama.Logger = k.saramaLogger

	clientConf, err := k.clientConf()
	if err != nil {
		return err
	}
	log.Debugf("Kafka ClientID: %s", clientConf.ClientID)

	if k.client, err = k.factory.NewClient(k, clientConf); err != nil {
		log.Errorf("Failed to create Kafka client: %s", err)
		return err
	}
	var brokers []string
	for _, broker := range k.client.Brokers() {
		brokers = append(brokers, broker.Addr())
	}
	log.Infof("Kafka Connected: %s", brokers)
	return nil
}

func (k *kafkaCommon) createProducer() (err error) {
	log.Debugf("Kafka Producer Topic=%s", k.conf.TopicOut)
	if k.producer, err = k.client.NewProducer(k); err != nil {
		log.Errorf("Failed to create Kafka producer: %s", err)
	}
	return err
}

func (k *kafkaCommon) startProducer() {
	k.producerWG.Add(2)
	go k.goRoutines.ProducerErrorLoop(k.consumer, k.producer, &k.producerWG)
	go k.goRoutines.ProducerSuccessLoop(k.consumer, k.producer, &k.producerWG)
	log.Infof("Kafka Created producer")
}

func (k *kafkaCommon) createConsumer() (err error) {
	log.Debugf("Kafka Consumer Topic=%s ConsumerGroup=%s", k.conf.TopicIn, k.conf.ConsumerGroup)
	if k.consumer, err = k.client.NewConsumer(k); err != nil {
		log.Errorf("Failed to create Kafka consumer: %s", err)
	}
	return err
}

func (k *kafkaCommon) startConsumer() {
	k.consumerWG.Add(2) // messages and errors
	go func() {
		for err := range k.consumer.Errors() {
			log.Error("Kafka consumer failed:", err)
		}
		k.consumerWG.Done()
	}()
	go k.goRoutines.ConsumerMessagesLoop(k.consumer, k.producer, &k.consumerWG)
	log.Infof("Kafka Created consumer")
}

// Start connects and kicks off the producer and consumer loops. It does
// not block: the caller stops the bridge with Stop
func (k *kafkaCommon) Start() error {
	if err := k.connect(); err != nil {
		return err
	}
	if err := k.createConsumer(); err != nil {
		return err
	}
	if err := k.createProducer(); err != nil {
		k.consumer.Close()
		return err
	}
	k.startConsumer()
	k.startProducer()
	log.Debugf("Kafka initialization complete")
	return nil
}

// Stop closes the producer and consumer, and waits for their loops to drain
func (k *kafkaCommon) Stop() {
	k.stopOnce.Do(func() {
		if k.producer == nil || k.consumer == nil {
			return
		}
		k.producer.AsyncClose()
		k.consumer.Close()
		k.producerWG.Wait()
		k.consumerWG.Wait()
		log.Infof("Kafka bridge complete")
	})
}
