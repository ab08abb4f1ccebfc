package session

import "github.com/jspencer/fieldlink/internal/models"

// Frame type discriminators on the gateway websocket.
const (
	frameNewJob    = "new_job"
	frameJobStatus = "job_status_update"
	frameLocation  = "location_update"
)

// inboundFrame is the envelope for frames received from the gateway. Only
// the fields for the frame's type are populated.
type inboundFrame struct {
	Type           string      `json:"type"`
	ServiceRequest *models.Job `json:"service_request"` // new_job
	JobID          int64       `json:"job_id"`          // job_status_update
	Status         string      `json:"status"`          // job_status_update
}

// locationFrame is the periodic heartbeat beacon. JobID is nil when no job
// is active.
type locationFrame struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	JobID     *int64  `json:"job_id"`
}
