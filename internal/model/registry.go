package model

// AllModels returns every model the schema migration covers. New tables
// only need an entry here.
func AllModels() []interface{} {
	return []interface{}{
		&Invocation{},
		&MirrorFailure{},
		&OutboxMessage{},
	}
}
