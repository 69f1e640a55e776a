// Package engine parses requests into commands and executes them against the
// store. It is the contract between the network layer and the cache core:
//
//   - Parse / ParseText: request (wire array) -> *Command, or not a command
//   - Engine.Execute: *Command -> encoded reply
//   - Engine.Handle: raw request bytes -> encoded reply (decode, parse, execute)
//   - Engine.EnablePersistence, RestoreFromPersistence, FlushPersistence and
//     SetRestorationMode: durability through package aof
//
// Replies:
//
//	PING                 +PONG
//	ECHO words...        bulk string of the words joined by spaces
//	SET k words [EX n]   +OK
//	GET k                bulk string, or null bulk if absent
//	DEL/EXISTS/EXPIRE    :1 or :0
//	TTL k                :<seconds>, :-1 without expiry, :-2 if absent
//	KEYS [pattern]       array of bulk strings, sorted
//	CLEAR                +OK
//	INFO                 bulk string of "field:value" lines, cached for a second
//
// Invalid commands are answered with "-ERR invalid command", undecodable
// requests with "-ERR protocol error: <reason>".
//
// Every mutating command that took effect (SET, CLEAR, DEL and EXPIRE when
// they returned 1) is appended to the log with its arguments exactly as
// received, unless the engine is in restoration mode. Replaying a SET with a
// ttl therefore starts the ttl again at replay time.
package engine
