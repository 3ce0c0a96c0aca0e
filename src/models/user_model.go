package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account on the network. Username is the public handle, derived
// from the email's local part at signup, and is what connection requests
// and posts reference.
type User struct {
	Id             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username       string             `json:"username" bson:"username"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"-" bson:"password"`
	Bio            string             `json:"bio" bson:"bio"`
	Skills         []string           `json:"skills" bson:"skills"`
	Materials      []Material         `json:"materials" bson:"materials"`
	ProfilePicture string             `json:"profile_picture" bson:"profile_picture"`
}

// Material is a shared resource on a profile, visible only to accepted
// connections.
type Material struct {
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
}

type UserDto struct {
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Bio            string   `json:"bio,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
}

// PublicProfile is the view of another user's profile. Materials is nil
// unless the viewer holds an accepted connection with the profile owner.
type PublicProfile struct {
	UserDto
	Materials []Material `json:"materials,omitempty"`
	Connected bool       `json:"connected"`
	Posts     []Post     `json:"posts"`
}

// ToDto strips the private fields for API responses.
func (u User) ToDto() UserDto {
	return UserDto{
		Username:       u.Username,
		Name:           u.Name,
		Bio:            u.Bio,
		Skills:         u.Skills,
		ProfilePicture: u.ProfilePicture,
	}
}
