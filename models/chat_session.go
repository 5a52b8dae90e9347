package models

import "time"

// ChatSession is a conversation grouping of ordered messages.
// Collection: chat_sessions
//
// ID is an integer allocated from the counters collection so that the
// browser-facing identifier stays a plain number.
type ChatSession struct {
	ID        int64     `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	OwnerCode string    `bson:"owner_code,omitempty" json:"owner_code,omitempty"`
}

// VisibleTo reports whether a caller may read or append to the session.
// Anonymous sessions are visible to anyone holding the id.
func (s ChatSession) VisibleTo(userCode string) bool {
	return s.OwnerCode == "" || s.OwnerCode == userCode
}
