package model

import "github.com/google/uuid"

// File is an uploaded document. Content is kept in database unless it was pushed to
// cloud storage, in which case StorageObjectName point to the object.
type File struct {
	ID                int       `gorm:"primaryKey" json:"id"`
	OwnerID           uuid.UUID `gorm:"type:uuid;index" json:"owner_id"`
	Content           []byte    `json:"-"`
	Extension         string    `json:"extension"`
	StorageObjectName string    `gorm:"type:text" json:"-"`
}
