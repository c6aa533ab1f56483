// Package provider is the model-client boundary: it turns a conversation
// history and tool descriptors into one assistant turn.
//
// Backends: Ollama (default), Anthropic Messages, OpenAI chat completions.
// Every backend failure is a *ModelError classified as transport, protocol
// or refused; context cancellation is returned untouched.
package provider
