// Package model defines the normalized request/response contract between
// the conversation engine and language-model providers, plus a scripted
// MockModel for tests. Vendor adapters live in the subpackages openai and
// anthropic.
package model
