// Command recut reconciles machine transcripts of meeting recordings: a
// terminal editor, the HTTP backend it talks to, and an MCP server over the
// saved sessions.
package main

func main() {
	Execute()
}
