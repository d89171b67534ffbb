package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ChunkEmbedding is one indexed chunk of one snapshot. Rows of a retired snapshot are deleted on release.
type ChunkEmbedding struct {
	Id              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SnapshotVersion string          `gorm:"type:varchar(64);not null;index"`
	Seq             int64           `gorm:"not null;default:0"` // insertion order within the snapshot
	SourceId        string          `gorm:"type:text;not null"`
	ChunkId         string          `gorm:"type:text;not null"`
	ChunkIndex      int             `gorm:"default:0"`
	Document        string          `gorm:"type:text"`
	EmbeddingValue  pgvector.Vector `gorm:"type:vector"`
	Metadata        datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
