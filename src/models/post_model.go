package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a shared piece of content: a title and description, optionally
// with an image or an external video link. Media is carried as URLs; the
// backend does not host files.
type Post struct {
	Id          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Author      string             `json:"author" bson:"author"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	ImageURL    string             `json:"imageUrl,omitempty" bson:"imageUrl"`
	VideoURL    string             `json:"videoUrl,omitempty" bson:"videoUrl"`
	LikeCount   int                `json:"likeCount" bson:"likeCount"`
	LikedBy     []string           `json:"likedBy" bson:"likedBy"`
	Comments    []Comment          `json:"comments" bson:"comments"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Comment struct {
	Id        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User      string             `json:"user" bson:"user"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
