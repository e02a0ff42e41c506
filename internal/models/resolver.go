package models

import (
	"time"

	"github.com/google/uuid"
)

// ResolverAssignment grants a user resolution rights on a wager.
// CanResolveIndependently=false means the resolver only contributes a
// consensus vote and cannot resolve unilaterally.
type ResolverAssignment struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WagerID                 uuid.UUID  `gorm:"type:uuid;not null;index" json:"wager_id"`
	ResolverID              uint       `gorm:"not null;index" json:"resolver_id"`
	AssignedBy              uint       `gorm:"not null" json:"assigned_by"`
	Reason                  *string    `gorm:"size:500" json:"reason"`
	CanResolveIndependently bool       `gorm:"not null;default:false" json:"can_resolve_independently"`
	IsActive                bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt               time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	RevokedAt               *time.Time `json:"revoked_at"`
}

func (ResolverAssignment) TableName() string {
	return "resolver_assignments"
}
