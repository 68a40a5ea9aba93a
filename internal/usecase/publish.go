package usecase

import (
	"context"
	"encoding/json"

	"github.com/example/shop-order-service/internal/domain"
)

func publishJSON(ctx context.Context, bus domain.EventBus, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, topic, payload)
}
