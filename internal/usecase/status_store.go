package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/metrics"
)

// StatusKey is the durable key holding the last written status of an order.
func StatusKey(orderID string) string {
	return "order_" + orderID + "_status"
}

// timestampKey holds the sequencer timestamp of the write under StatusKey.
func timestampKey(orderID string) string {
	return StatusKey(orderID) + "_at"
}

// StatusStore is the durable status record on top of a KeyValueStore.
// There is no transaction across writers: the last Set wins.
type StatusStore struct {
	kv      repository.KeyValueStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStatusStore wraps kv; m may be nil.
func NewStatusStore(kv repository.KeyValueStore, logger *slog.Logger, m *metrics.Metrics) *StatusStore {
	return &StatusStore{kv: kv, logger: logger, metrics: m}
}

// SetStatus writes the timestamp and then the status, so a stored status is
// never left without the timestamp that guards it against older events.
// Either failure is logged and returned wrapped in ErrPersistence. When the
// status write fails the previous timestamp is put back.
func (s *StatusStore) SetStatus(ctx context.Context, orderID string, status model.OrderStatus, at int64) error {
	prevAt, hadAt, _ := s.kv.Get(ctx, timestampKey(orderID))

	if err := s.kv.Set(ctx, timestampKey(orderID), strconv.FormatInt(at, 10)); err != nil {
		s.metrics.PersistenceFailure("write_timestamp")
		s.logger.WarnContext(ctx, "status timestamp write failed",
			slog.String("order", orderID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", domainErrors.ErrPersistence, err)
	}

	if err := s.kv.Set(ctx, StatusKey(orderID), string(status)); err != nil {
		s.metrics.PersistenceFailure("write")
		s.logger.WarnContext(ctx, "status write failed",
			slog.String("order", orderID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		s.restoreTimestamp(ctx, orderID, prevAt, hadAt)
		return fmt.Errorf("%w: %w", domainErrors.ErrPersistence, err)
	}
	return nil
}

func (s *StatusStore) restoreTimestamp(ctx context.Context, orderID, prev string, had bool) {
	var err error
	if had {
		err = s.kv.Set(ctx, timestampKey(orderID), prev)
	} else {
		err = s.kv.Remove(ctx, timestampKey(orderID))
	}
	if err != nil {
		s.logger.WarnContext(ctx, "status timestamp rollback failed",
			slog.String("order", orderID),
			slog.String("error", err.Error()),
		)
	}
}

// GetStatus returns the stored record. Read failures and values that are
// not a known status are reported as absent so callers fall back to the
// snapshot status.
func (s *StatusStore) GetStatus(ctx context.Context, orderID string) (model.StatusRecord, bool) {
	raw, ok, err := s.kv.Get(ctx, StatusKey(orderID))
	if err != nil {
		s.metrics.PersistenceFailure("read")
		s.logger.WarnContext(ctx, "status read failed",
			slog.String("order", orderID),
			slog.String("error", err.Error()),
		)
		return model.StatusRecord{}, false
	}
	if !ok {
		return model.StatusRecord{}, false
	}

	status, ok := decodeStatus(raw)
	if !ok {
		s.logger.WarnContext(ctx, "ignoring corrupt stored status",
			slog.String("order", orderID),
			slog.String("value", raw),
		)
		return model.StatusRecord{}, false
	}

	rec := model.StatusRecord{Status: status}
	if rawAt, ok, err := s.kv.Get(ctx, timestampKey(orderID)); err == nil && ok {
		if at, err := strconv.ParseInt(strings.TrimSpace(rawAt), 10, 64); err == nil && at > 0 {
			rec.UpdatedAt = at
		}
	}
	return rec, true
}

// decodeStatus accepts a raw status string or a JSON encoded one.
func decodeStatus(raw string) (model.OrderStatus, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(raw), &unquoted); err != nil {
			return "", false
		}
		raw = unquoted
	}
	status := model.OrderStatus(raw)
	return status, status.Valid()
}
