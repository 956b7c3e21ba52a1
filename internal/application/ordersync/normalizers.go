package ordersync

import (
	"time"

	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// NewStrictNormalizer returns the normalizer used by bulk imports.
func NewStrictNormalizer(loc *time.Location, logger *zap.Logger) *order.Normalizer {
	return order.NewNormalizer(
		order.WithStrict(true),
		order.WithLocation(loc),
		order.WithWarningHandler(logConversionWarning(logger)),
	)
}

// NewLenientNormalizer returns the normalizer used by queue ingestion.
func NewLenientNormalizer(loc *time.Location, logger *zap.Logger) *order.Normalizer {
	return order.NewNormalizer(
		order.WithStrict(false),
		order.WithLocation(loc),
		order.WithWarningHandler(logConversionWarning(logger)),
	)
}

func logConversionWarning(logger *zap.Logger) func(order.ConversionWarning) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w order.ConversionWarning) {
		logger.Warn("value conversion failed, using default",
			zap.String("field", w.Field),
			zap.Any("value", w.Value),
			zap.Error(w.Err),
		)
	}
}
