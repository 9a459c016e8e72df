package models

import "github.com/google/uuid"

// Resource is a bookable asset in the campus directory: a room, a lab bench,
// a vehicle, a piece of equipment.
type Resource struct {
	ID       uuid.UUID
	TenantID string
	Name     string
	Building string
	Campus   string
	Capacity int
	Features []string

	// Available reflects the directory's current bookability flag (false
	// during maintenance windows or decommissioning).
	Available bool
	// UnavailabilityReason explains a false Available for transparency in
	// proposed alternatives.
	UnavailabilityReason string
}

// HasFeature reports whether the resource advertises the given feature.
func (r Resource) HasFeature(feature string) bool {
	for _, f := range r.Features {
		if f == feature {
			return true
		}
	}
	return false
}
