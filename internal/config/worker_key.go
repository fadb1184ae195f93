package config

type WorkerKeyStruct struct {
	PersistAttemptsQueue string
	DeadAttemptsQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAttemptsQueue: "persist_attempts_queue",
	DeadAttemptsQueue:    "dead_attempts_queue",
}
