// Package presence describes who is currently using the back office.
package presence

import "time"

// DefaultPage is recorded when a heartbeat does not name a page.
const DefaultPage = "index.html"

// Entry is the state tracked for one online user.
type Entry struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	OnlineAt time.Time `json:"online_at"`
	Page     string    `json:"page"`
}

// Snapshot is the aggregated view returned to administrators.
type Snapshot struct {
	Count int     `json:"count"`
	Users []Entry `json:"users"`
}
