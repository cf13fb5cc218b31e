package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every persisted row
// shares. GORM maps the fields by name.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch marks the entity modified. Repositories persist UpdatedAt as
// part of the aggregate write, there are no GORM hooks involved.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
