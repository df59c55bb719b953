package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "quick-swgoh/pkg/common/errors"
	"quick-swgoh/pkg/core/history/model"
	"quick-swgoh/pkg/core/history/repository/dao"
)

const maxColumnLen = 255

type GormHistoryRepository struct {
	db *gorm.DB
}

var _ dao.HistoryRepository = (*GormHistoryRepository)(nil)

func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Record 写入一条审计记录，ID 为空时生成 UUID
func (r *GormHistoryRepository) Record(ctx context.Context, rec model.LookupRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.RequestID = truncate(rec.RequestID)
	rec.Query = truncate(rec.Query)
	rec.Error = truncate(rec.Error)

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("%w: lookup record insert failed", apperrors.WrapGormError(err))
	}
	return nil
}

// Recent 按时间倒序返回某个浏览器最近的记录
func (r *GormHistoryRepository) Recent(ctx context.Context, clientID string, limit int) ([]model.LookupRecord, error) {
	if clientID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var records []model.LookupRecord
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: lookup record query failed", apperrors.WrapGormError(err))
	}
	return records, nil
}

func (r *GormHistoryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return apperrors.WrapGormError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.WrapGormError(err)
	}
	return nil
}

// NopHistoryRepository 未启用数据库时使用
type NopHistoryRepository struct{}

var _ dao.HistoryRepository = NopHistoryRepository{}

func (NopHistoryRepository) Record(context.Context, model.LookupRecord) error { return nil }

func (NopHistoryRepository) Recent(context.Context, string, int) ([]model.LookupRecord, error) {
	return nil, nil
}

func (NopHistoryRepository) Ping(context.Context) error { return nil }

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxColumnLen {
		return s
	}
	return string(runes[:maxColumnLen])
}
