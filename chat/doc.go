// Package chat runs single model turns: it builds the bounded prompt,
// drives the provider through the streaming tool-call loop, merges the
// model token stream with live tool events into one ordered chunk
// sequence, and collects the outcome into a ChatResult.
package chat
