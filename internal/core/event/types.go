package event

// Entity references carry the raw ecs.EntityID value so this package stays
// below ecs in the import graph.

// StructureChanged is emitted whenever the entity tree changes shape:
// create, destroy, reparent, component add or remove.
type StructureChanged struct {
	Reason string
	Entity uint64
}

// SelectionChanged is emitted when the editor selection moves. Entity is 0
// when the selection was cleared.
type SelectionChanged struct {
	Entity uint64
}

// HostStateChanged is emitted on every script host state transition.
type HostStateChanged struct {
	RunID      string
	From       string
	To         string
	Diagnostic string
}

// ScriptFault is emitted when a running script hook fails.
type ScriptFault struct {
	RunID string
	Hook  string
	Err   string
}

// LogLine is a forwarded log entry for attached editors.
type LogLine struct {
	Level string
	Src   string
	Msg   string
}
