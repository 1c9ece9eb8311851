package db

import "time"

type CertificateModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ContentID   string    `gorm:"index;not null"`
	ContentHash string    `gorm:"not null"`
	MetadataCID string    `gorm:"column:metadata_cid;not null"`
	MediaCIDs   []byte    `gorm:"column:media_cids;type:jsonb"`
	ContentType string    `gorm:"not null"`
	License     string    `gorm:"not null"`
	Contributor string    `gorm:"index;not null"`
	LedgerTxRef string    `gorm:"column:ledger_tx_ref;not null"`
	Sequence    int64     `gorm:"not null"`
	Status      string    `gorm:"not null"`
	Mode        string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (CertificateModel) TableName() string {
	return "certificates"
}

type RewardEventModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Contributor string    `gorm:"index;not null"`
	Points      int64     `gorm:"not null"`
	Reason      string    `gorm:"not null"`
	Metadata    []byte    `gorm:"type:jsonb"`
	LedgerTxRef string    `gorm:"column:ledger_tx_ref;not null"`
	Mode        string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (RewardEventModel) TableName() string {
	return "reward_events"
}
