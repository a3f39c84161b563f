// Package state tracks active conversations for Telegram chats. A
// conversation is owned by a (chat, user) pair so several members of the
// same group can run flows independently.
package state
