package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MonitorStatus is active or paused.
type MonitorStatus string

const (
	MonitorActive MonitorStatus = "active"
	MonitorPaused MonitorStatus = "paused"
)

// MonitoredNiche is a standing weekly research subscription.
type MonitoredNiche struct {
	ID            primitive.ObjectID `json:"id"                        bson:"_id,omitempty"`
	UserID        string             `json:"user_id"                   bson:"user_id"`
	Niche         string             `json:"niche"                     bson:"niche"`
	SourceURL     string             `json:"source_url,omitempty"      bson:"source_url,omitempty"`
	Categories    []Category         `json:"categories,omitempty"      bson:"categories,omitempty"`
	Status        MonitorStatus      `json:"status"                    bson:"status"`
	CreatedAt     time.Time          `json:"created_at"                bson:"created_at"`
	LastRunAt     *time.Time         `json:"last_run_at,omitempty"     bson:"last_run_at,omitempty"`
	LastRequestID string             `json:"last_request_id,omitempty" bson:"last_request_id,omitempty"`
}

// CreateMonitorRequest is the JSON body for POST /api/monitors.
type CreateMonitorRequest struct {
	Niche      string     `json:"niche"`
	SourceURL  string     `json:"source_url"`
	Categories []Category `json:"categories"`
}

// IdeaStatus tracks how far a saved idea has progressed.
type IdeaStatus string

const (
	IdeaSaved     IdeaStatus = "saved"
	IdeaExploring IdeaStatus = "exploring"
	IdeaBuilding  IdeaStatus = "building"
	IdeaArchived  IdeaStatus = "archived"
)

// Valid reports whether s is a known idea status.
func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaSaved, IdeaExploring, IdeaBuilding, IdeaArchived:
		return true
	}
	return false
}

// SavedIdea is a pain point (and optionally one solution) bookmarked by a user.
type SavedIdea struct {
	ID                   primitive.ObjectID `json:"id"                              bson:"_id,omitempty"`
	UserID               string             `json:"user_id"                         bson:"user_id"`
	RequestID            string             `json:"request_id"                      bson:"request_id"`
	PainPointTitle       string             `json:"pain_point_title"                bson:"pain_point_title"`
	PainPointDescription string             `json:"pain_point_description"          bson:"pain_point_description"`
	SolutionTitle        string             `json:"solution_title,omitempty"        bson:"solution_title,omitempty"`
	SolutionDescription  string             `json:"solution_description,omitempty"  bson:"solution_description,omitempty"`
	SolutionType         SolutionType       `json:"solution_type,omitempty"         bson:"solution_type,omitempty"`
	Notes                string             `json:"notes,omitempty"                 bson:"notes,omitempty"`
	Status               IdeaStatus         `json:"status"                          bson:"status"`
	CreatedAt            time.Time          `json:"created_at"                      bson:"created_at"`
}
