package shared

// BaseAggregateRoot adds the version column the order repository uses
// for optimistic locking: updates carry WHERE version = ? and bump it
// on success.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}
