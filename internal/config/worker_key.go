package config

type WorkerKeyStruct struct {
	PersistDraftsQueue string
	PersistStatsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistDraftsQueue: "persist_drafts_queue",
	PersistStatsQueue:  "persist_stats_queue",
}
