// Package memory holds the conversation data model and the append-only
// history store the coordinator works against.
//
// Persistence model:
//   - Full fidelity: text, tool calls and tool results are stored.
//   - Missing transcript files load as an empty conversation.
package memory
