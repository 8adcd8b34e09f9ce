// Package core defines the shared data model of the coterie conversation
// engine: conversations and their flat message transcripts, the typed
// stream chunks produced during a model turn, the per-turn ChatResult and
// the tail-anchored context window trimmer.
//
// Higher layers (chat, delegation, conversation) exchange these types; the
// package itself has no dependencies beyond the standard library and uuid.
package core
