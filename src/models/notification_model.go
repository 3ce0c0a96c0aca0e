package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notification struct {
	Id          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Recipient   string             `json:"recipient" bson:"recipient"`
	Type        NotificationType   `json:"type" bson:"type"`
	RelatedUser string             `json:"relatedUser" bson:"relatedUser"`
	PostId      primitive.ObjectID `json:"postId,omitempty" bson:"postId,omitempty"`
	Read        bool               `json:"read" bson:"read"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

type NotificationType string

const (
	NotificationConnectionAccepted NotificationType = "connectionAccepted"
	NotificationLike               NotificationType = "like"
	NotificationComment            NotificationType = "comment"
)
