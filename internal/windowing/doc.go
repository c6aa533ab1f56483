// Package windowing selects the newest slice of a conversation that fits an
// input budget without splitting a tool exchange.
//
// Leading system messages are pinned and always sent. The history itself is
// never trimmed; only the view sent to the model is.
package windowing
