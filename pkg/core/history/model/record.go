package model

import (
	"time"

	"gorm.io/gorm"
)

// LookupRecord 一次桥接调用的审计记录，只写不读回作答
// ClientID 标识发起查询的浏览器，页面只列出本浏览器的记录
type LookupRecord struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	RequestID string    `gorm:"type:varchar(255);index"`
	ClientID  string    `gorm:"type:varchar(64);index;not null;default:''"`
	Kind      string    `gorm:"type:varchar(16);index;not null"`
	Query     string    `gorm:"type:varchar(255);not null"`
	OK        bool      `gorm:"column:ok;not null"`
	Status    int       `gorm:"not null;default:0"`
	Error     string    `gorm:"type:varchar(255)"`
	LatencyMs int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"index;autoCreateTime"`
}

// TableName 定义映射表名
func (LookupRecord) TableName() string {
	return "lookup_records"
}

func AutoMigrate(db *gorm.DB) error {
	return db.Set("gorm:table_options", "COMMENT='lookup audit log'").
		AutoMigrate(&LookupRecord{})
}
