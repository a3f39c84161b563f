// Package flow implements conversation flows for Telegram bots. A flow is a
// named set of rules; each rule binds a trigger (command, callback, text,
// document, or chat-member update) and a set of conversation states to a
// single handler. The dispatcher routes every incoming update to at most one
// handler and applies the state transition the handler requests.
package flow
