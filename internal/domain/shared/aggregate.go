package shared

// BaseAggregateRoot extends BaseEntity with a version counter used for
// optimistic concurrency on aggregate writes.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// NewBaseAggregateRoot returns a new aggregate root at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// IncrementVersion bumps the version. State-changing aggregate operations
// call this so concurrent writers can be detected at save time.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}
