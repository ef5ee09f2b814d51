// Package session implements the streaming session manager: the controller
// that owns one conversational session's lifecycle, serializes prompt
// submissions against it, reduces the engine's event stream into a single
// accumulated answer, and recovers from empty-turn stalls with bounded
// continuation retries.
//
// The package also provides the registry mapping composite session keys to
// controllers, and the session error taxonomy.
package session
