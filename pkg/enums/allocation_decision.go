package enums

import "fmt"

// AllocationDecision represents the response a seller can give to a
// pending allocation.
type AllocationDecision string

const (
	// AllocationDecisionAccept confirms the seller will fulfill the quantity.
	AllocationDecisionAccept AllocationDecision = "accept"
	// AllocationDecisionReject declines the allocation and frees the reservation.
	AllocationDecisionReject AllocationDecision = "reject"
)

// IsValid reports whether the value is a known AllocationDecision.
func (a AllocationDecision) IsValid() bool {
	return a == AllocationDecisionAccept || a == AllocationDecisionReject
}

// ParseAllocationDecision converts raw input into an AllocationDecision.
func ParseAllocationDecision(value string) (AllocationDecision, error) {
	switch AllocationDecision(value) {
	case AllocationDecisionAccept:
		return AllocationDecisionAccept, nil
	case AllocationDecisionReject:
		return AllocationDecisionReject, nil
	default:
		return "", fmt.Errorf("invalid allocation decision %q", value)
	}
}
