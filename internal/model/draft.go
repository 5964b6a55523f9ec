package model

// DraftVersion tags the AttemptDraft wire shape. Drafts carrying any other
// version are treated as absent, never migrated.
const DraftVersion = 1

// AttemptDraft is the full persisted state of an in-progress quiz session,
// keyed by user and test. It is overwritten on every state change (answer,
// mark, navigation, timer tick) and deleted on successful submission.
// The three maps carry an entry for every question in the loaded set,
// keyed by question UUID string.
type AttemptDraft struct {
	Version     int             `json:"v"`
	Index       int             `json:"idx"`
	SecondsLeft int             `json:"secs_left"`
	Answers     map[string]*int `json:"answers"`
	Marked      map[string]bool `json:"marked"`
	TimeSpent   map[string]int  `json:"time_spent"`
}
