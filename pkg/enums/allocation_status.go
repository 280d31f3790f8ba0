package enums

import "fmt"

// AllocationStatus tracks the seller's response state for an allocation.
type AllocationStatus string

const (
	AllocationStatusPending  AllocationStatus = "pending"
	AllocationStatusAccepted AllocationStatus = "accepted"
	AllocationStatusRejected AllocationStatus = "rejected"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusPending,
	AllocationStatusAccepted,
	AllocationStatusRejected,
}

// String implements fmt.Stringer.
func (a AllocationStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationStatus.
func (a AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAllocationStatus converts raw input into an AllocationStatus.
func ParseAllocationStatus(value string) (AllocationStatus, error) {
	for _, candidate := range validAllocationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation status %q", value)
}

// RejectReason records why an allocation was rejected. Timed-out
// allocations are stored as rejections with ReasonTimeout.
type RejectReason string

const (
	RejectReasonOutOfStock   RejectReason = "out_of_stock"
	RejectReasonPriceChanged RejectReason = "price_changed"
	RejectReasonLogistics    RejectReason = "logistics"
	RejectReasonTimeout      RejectReason = "timeout"
	RejectReasonOther        RejectReason = "other"
)

var validRejectReasons = []RejectReason{
	RejectReasonOutOfStock,
	RejectReasonPriceChanged,
	RejectReasonLogistics,
	RejectReasonTimeout,
	RejectReasonOther,
}

// IsValid reports whether the value is a known RejectReason.
func (r RejectReason) IsValid() bool {
	for _, candidate := range validRejectReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRejectReason converts raw input into a RejectReason.
func ParseRejectReason(value string) (RejectReason, error) {
	for _, candidate := range validRejectReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reject reason %q", value)
}
