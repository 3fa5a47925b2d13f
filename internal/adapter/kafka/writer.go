package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/airquality-etl/internal/config"
	"github.com/couchcryptid/airquality-etl/internal/domain"
	"github.com/couchcryptid/airquality-etl/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ExtremeEvent is the payload published for each Extreme hour.
type ExtremeEvent struct {
	RunID         string  `json:"run_id"`
	Hour          string  `json:"hour"`
	Concentration float64 `json:"concentration"`
	Threshold     float64 `json:"threshold"`
	Percentile    float64 `json:"percentile"`
	Rank          int     `json:"rank"`
	HourOfDay     int     `json:"hour_of_day"`
	Month         int     `json:"month"`
	Weekday       string  `json:"weekday"`
	Date          string  `json:"date"`
}

// Writer produces one message per Extreme hour to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured extreme-hour topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaExtremeTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes the analysis's Extreme hours in severity order with a single
// WriteMessages call.
func (w *Writer) Load(ctx context.Context, a domain.Analysis) error {
	if len(a.Extremes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(a.Extremes))
	for i := range a.Extremes {
		msg, err := serializeToMessage(a, i)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish extreme hours: %w", err)
	}
	w.metrics.EventsPublished.Add(float64(len(msgs)))
	w.logger.Info("extreme hours published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals the i-th Extreme hour of a into a Kafka message
// keyed by its hour, so replays of the same data land on the same partition.
func serializeToMessage(a domain.Analysis, i int) (kafkago.Message, error) {
	r := a.Extremes[i]
	hour := r.Hour.Format(time.RFC3339)
	data, err := json.Marshal(ExtremeEvent{
		RunID:         a.RunID.String(),
		Hour:          hour,
		Concentration: r.Concentration,
		Threshold:     a.Threshold,
		Percentile:    a.Config.Percentile,
		Rank:          i + 1,
		HourOfDay:     r.HourOfDay,
		Month:         r.Month,
		Weekday:       r.Weekday.String(),
		Date:          r.Date,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize extreme hour: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(hour),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(a.RunID.String())},
			{Key: "classification", Value: []byte(r.Classification)},
			{Key: "threshold", Value: []byte(strconv.FormatFloat(a.Threshold, 'g', -1, 64))},
		},
	}, nil
}
