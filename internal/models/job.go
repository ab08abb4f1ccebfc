package models

import "time"

// Job statuses assigned by the dispatch backend. A job arrives as PENDING,
// moves through the active statuses while a worker services it, and ends in
// one of the terminal statuses.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusArrived   = "ARRIVED"
	StatusWorking   = "WORKING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
	StatusRejected  = "REJECTED"
)

// Worker availability values pushed to the backend.
const (
	AvailabilityOnline  = "ONLINE"
	AvailabilityOffline = "OFFLINE"
	AvailabilityWorking = "WORKING"
)

// Job is a single service request. One struct serves the gateway wire format
// (json tags), the in-memory session state, and the persisted history row
// (gorm tags). The ID is server-assigned and stable for the job's lifetime.
type Job struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	Status        string    `json:"status" gorm:"size:16;index"`
	Problem       string    `json:"problem" gorm:"type:text"`
	VehicleType   string    `json:"vehicle_type" gorm:"size:64"`
	Price         float64   `json:"price"`
	Address       string    `json:"address" gorm:"type:text"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	CustomerName  string    `json:"customer_name" gorm:"size:128"`
	CustomerPhone string    `json:"customer_phone" gorm:"size:32"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TerminalStatus reports whether status ends the active job's lifecycle.
// REJECTED is deliberately excluded: it is an outcome for pending offers
// only and never addresses the job in the active slot.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ActiveStatus reports whether status marks a job currently being serviced.
func ActiveStatus(status string) bool {
	switch status {
	case StatusAccepted, StatusArrived, StatusWorking:
		return true
	}
	return false
}
