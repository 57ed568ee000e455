// Package kafka implements the Kafka event reporter.
// Sends AuthEvents to Kafka as JSON or protobuf (google.protobuf.Struct).
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/report"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const (
	pluginName = "kafka"

	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
	defaultEncoding     = "json"
)

func init() {
	plugin.RegisterReporter(pluginName, NewKafkaReporter)
}

// messageWriter is the subset of *kafka.Writer the reporter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReporter sends events to Kafka.
type KafkaReporter struct {
	name   string
	writer messageWriter
	config Config

	reportedCount atomic.Uint64
	errorCount    atomic.Uint64
}

// Config represents Kafka reporter configuration.
type Config struct {
	Brokers      []string      `mapstructure:"brokers"`       // required
	Topic        string        `mapstructure:"topic"`         // required
	BatchSize    int           `mapstructure:"batch_size"`    // optional, default 100
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // optional, default 100ms
	Compression  string        `mapstructure:"compression"`   // optional: none|gzip|snappy|lz4, default snappy
	MaxAttempts  int           `mapstructure:"max_attempts"`  // optional, default 3
	Encoding     string        `mapstructure:"encoding"`      // optional: json|protobuf, default json
}

// NewKafkaReporter creates a new Kafka reporter.
func NewKafkaReporter() plugin.Reporter {
	return &KafkaReporter{
		name: pluginName,
	}
}

// Name returns the plugin name.
func (r *KafkaReporter) Name() string {
	return r.name
}

// Init initializes the reporter with configuration.
func (r *KafkaReporter) Init(config map[string]any) error {
	if config == nil {
		return fmt.Errorf("kafka reporter requires configuration")
	}

	cfg := Config{
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Compression:  defaultCompression,
		MaxAttempts:  defaultMaxAttempts,
		Encoding:     defaultEncoding,
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(config); err != nil {
		return fmt.Errorf("kafka reporter: %w", err)
	}

	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("brokers is required")
	}
	if cfg.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if cfg.Encoding != "json" && cfg.Encoding != "protobuf" {
		return fmt.Errorf("invalid encoding %q, must be json or protobuf", cfg.Encoding)
	}

	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // same authenticator -> same partition
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Async:        false,
	}

	switch cfg.Compression {
	case "none", "":
		writerConfig.CompressionCodec = nil
	case "gzip":
		writerConfig.CompressionCodec = compress.Gzip.Codec()
	case "snappy":
		writerConfig.CompressionCodec = compress.Snappy.Codec()
	case "lz4":
		writerConfig.CompressionCodec = compress.Lz4.Codec()
	default:
		return fmt.Errorf("invalid compression type: %s", cfg.Compression)
	}

	r.config = cfg
	r.writer = kafka.NewWriter(writerConfig)
	return nil
}

// Start starts the reporter.
func (r *KafkaReporter) Start(ctx context.Context) error {
	slog.Info("kafka reporter started",
		"brokers", r.config.Brokers,
		"topic", r.config.Topic,
		"batch_size", r.config.BatchSize,
		"batch_timeout", r.config.BatchTimeout,
		"compression", r.config.Compression,
		"encoding", r.config.Encoding,
	)
	return nil
}

// Stop closes the writer, flushing pending messages.
func (r *KafkaReporter) Stop(ctx context.Context) error {
	if r.writer != nil {
		if err := r.writer.Close(); err != nil {
			slog.Error("error closing kafka writer", "error", err)
			return err
		}
	}

	slog.Info("kafka reporter stopped",
		"total_reported", r.reportedCount.Load(),
		"total_errors", r.errorCount.Load(),
	)
	return nil
}

// Report sends one event.
func (r *KafkaReporter) Report(ctx context.Context, ev core.AuthEvent) error {
	return r.ReportBatch(ctx, []core.AuthEvent{ev})
}

// ReportBatch sends events in a single write.
func (r *KafkaReporter) ReportBatch(ctx context.Context, evs []core.AuthEvent) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		msg, err := r.message(ev)
		if err != nil {
			r.errorCount.Add(1)
			return fmt.Errorf("serialize event failed: %w", err)
		}
		msgs = append(msgs, msg)
	}

	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		r.errorCount.Add(uint64(len(msgs)))
		return fmt.Errorf("kafka write failed: %w", err)
	}
	r.reportedCount.Add(uint64(len(msgs)))
	return nil
}

// message keys by authenticator address and labels the outcome in headers.
func (r *KafkaReporter) message(ev core.AuthEvent) (kafka.Message, error) {
	rec := report.NewRecord(ev)

	var (
		value []byte
		err   error
	)
	if r.config.Encoding == "protobuf" {
		value, err = rec.Proto()
	} else {
		value, err = rec.JSON()
	}
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(rec.Client),
		Value: value,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "result", Value: []byte(rec.Result)},
			{Key: "encoding", Value: []byte(r.config.Encoding)},
		},
	}, nil
}

// Flush is a no-op: writes are synchronous.
func (r *KafkaReporter) Flush(ctx context.Context) error {
	return nil
}
