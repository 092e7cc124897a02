package domain

import "time"

// LivestreamStatus aggregates the per-destination outcomes of a broadcast.
// A livestream is ready when every destination succeeded, degraded when some
// but not all did, and failed when none did.
type LivestreamStatus string

const (
	LivestreamReady    LivestreamStatus = "ready"
	LivestreamActive   LivestreamStatus = "active"
	LivestreamStopped  LivestreamStatus = "stopped"
	LivestreamDegraded LivestreamStatus = "degraded"
	LivestreamFailed   LivestreamStatus = "failed"
)

// DestinationStatus is the state of a single platform fan-out target
type DestinationStatus string

const (
	DestinationCreated DestinationStatus = "created"
	DestinationActive  DestinationStatus = "active"
	DestinationStopped DestinationStatus = "stopped"
	DestinationError   DestinationStatus = "error"
)

// Destination is one platform target of a livestream
type Destination struct {
	Platform      Platform          `json:"platform"`
	DestinationID string            `json:"destination_id"`
	Status        DestinationStatus `json:"status"`
	Error         string            `json:"error,omitempty"`
}

// Livestream represents one broadcast session fanned out to zero or more
// destination platforms. It references platform connections transitively
// but does not own them.
type Livestream struct {
	ID           string           `json:"id" db:"id"`
	TenantID     string           `json:"tenant_id" db:"tenant_id"`
	Title        string           `json:"title" db:"title"`
	Description  string           `json:"description" db:"description"`
	ThumbnailURL string           `json:"thumbnail_url" db:"thumbnail_url"`
	StartAt      *time.Time       `json:"start_at" db:"start_at"`
	Destinations []Destination    `json:"destinations" db:"destinations"`
	Status       LivestreamStatus `json:"status" db:"status"`
	CreatedBy    string           `json:"created_by" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// AggregateStatus derives the livestream status from its destinations.
// ok counts destinations in the given healthy state.
func AggregateStatus(destinations []Destination, healthy DestinationStatus, all, some LivestreamStatus) LivestreamStatus {
	ok := 0
	for _, d := range destinations {
		if d.Status == healthy {
			ok++
		}
	}
	switch {
	case len(destinations) > 0 && ok == len(destinations):
		return all
	case ok > 0:
		return some
	default:
		return LivestreamFailed
	}
}
