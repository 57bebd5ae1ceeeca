// Package vision provides a client for OpenAI-compatible multimodal chat
// completion APIs, plus tolerant decoding of model-produced JSON payloads.
package vision
