package models

import "time"

type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
)

func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// IssueResponse is the triage answer attached to an issue once a staff
// member responds. Attaching a response resolves the issue.
type IssueResponse struct {
	Text             string
	Images           []string
	RespondedBy      string
	RespondedByEmail string
	RespondedAt      time.Time
}

type Issue struct {
	ID             string
	Title          string
	Description    string
	Priority       IssuePriority
	Status         IssueStatus
	Images         []string // relative paths under the upload dir
	CreatedBy      string
	CreatedByEmail string
	Response       *IssueResponse
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
