// Package coordinator drives one conversation through a language model,
// dispatching the tool calls it requests until it produces a plain answer.
//
// Invariant:
//   - an assistant tool-call message and its tool results are appended to
//     history together, adjacent, with results in request order.
//
// Flow:
//
//	user(text) -> assistant(tool calls) -> tool(result)... -> assistant(text)
package coordinator
