package models

// EntryStatus describes an entry relative to one assignment
type EntryStatus string

const (
	EntryStatusAccepted EntryStatus = "accepted" // linked, user has a repo
	EntryStatusLinked   EntryStatus = "linked"   // linked, no repo yet
	EntryStatusUnlinked EntryStatus = "unlinked"
)
