package domain

import "strings"

// User identifies a shopper. IDs are stable per browser or client session.
type User struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Valid reports whether the user carries a non-blank id.
func (u User) Valid() bool {
	return strings.TrimSpace(u.ID) != ""
}
