package commands

// Command describes menu metadata for a bot command. The handler itself is
// a flow rule; this struct only drives the Telegram command menu and access
// checks.
type Command struct {
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
