package events

// ModuleRegistered is emitted when a module's executors are accepted into
// the registry. Checkers are not counted here; they come from the checker
// factory, not from modules.
type ModuleRegistered struct {
	Module    string
	Resolvers int
}

// ModuleSkipped is emitted when a module failed to build and was left out
// of the registry.
type ModuleSkipped struct {
	Module string
	Err    error
}
