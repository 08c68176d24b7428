package models

// RosterStudent is an actively enrolled student of a class.
type RosterStudent struct {
	ID       string `db:"id" json:"id"`
	NIS      string `db:"nis" json:"nis"`
	FullName string `db:"full_name" json:"full_name"`
}
