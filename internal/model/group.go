package model

// Group is a Clash proxy group. The published config carries a single
// select group, but the type keeps the renderer independent of that
// policy.
type Group struct {
	Name string
	Type string // "select"

	Members []string // proxy names / DIRECT
}
