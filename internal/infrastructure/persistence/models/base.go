package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/catalog/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the identity and timestamps of the domain's BaseAggregateRoot.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomainAggregateRoot converts BaseModel to a domain BaseAggregateRoot
func (m *BaseModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainAggregateRoot populates BaseModel from a domain BaseAggregateRoot
func (m *BaseModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}
