package models

import (
	"time"
)

// ConnectionRequest is a directed request from one user to another. At most
// one record exists per unordered {requester, recipient} pair; the record id
// is the canonical pair key, which is what enforces that. Rejection deletes
// the record, so there is no rejected status.
type ConnectionRequest struct {
	Id           string           `json:"id" bson:"_id,omitempty"`
	Requester    string           `json:"requester" bson:"requester"`
	Recipient    string           `json:"recipient" bson:"recipient"`
	Participants []string         `json:"participants" bson:"participants"`
	Status       ConnectionStatus `json:"status" bson:"status"`
	CreatedAt    time.Time        `json:"createdAt" bson:"createdAt"`
}

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
)

// PeerOf returns the participant that is not the given user, in either
// direction, or "" when the user is not part of the request.
func (r ConnectionRequest) PeerOf(user string) string {
	if r.Requester == user {
		return r.Recipient
	}
	if r.Recipient == user {
		return r.Requester
	}
	return ""
}
