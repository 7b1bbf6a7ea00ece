package types

// Status is the lifecycle status of a catalog row (plan, item, coupon)
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
