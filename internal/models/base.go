package models

import "github.com/google/uuid"

// assignID gives a new row an application-side UUID so inserts behave the same
// on Postgres and on SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Activity{},
		&ActivityParticipant{},
		&Favorite{},
		&Chat{},
		&ChatMember{},
		&Message{},
		&UserAvatar{},
	}
}
