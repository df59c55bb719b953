package dao

import (
	"context"

	"quick-swgoh/pkg/core/history/model"
)

type HistoryRepository interface {
	Record(ctx context.Context, rec model.LookupRecord) error
	Recent(ctx context.Context, clientID string, limit int) ([]model.LookupRecord, error)
	Ping(ctx context.Context) error
}
