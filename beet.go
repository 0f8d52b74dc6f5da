// Package beet implements an in-memory model for Minecraft-style packs:
// hierarchical collections of typed asset files organized under a fixed
// directory convention and distributed as a directory tree or a zip archive.
//
// A [Pack] maps namespace names to [Namespace] values; each namespace maps
// asset kinds to containers of [File] values, plus a bag of "extra" files
// keyed by exact filename. The [PackType] value carried by each pack declares
// the directory convention, the known asset [Kind] set and the pack-format
// registry, so new pack families can be described without touching the core.
//
// Packs are loaded by scanning an [Origin] (directory, zip archive or an
// [UnveilMapping]), merged with kind-specific rules and an optional
// [MergePolicy], and written back out with [Pack.Save].
//
// The model is not internally synchronized. Build and mutate a pack from a
// single goroutine; independent packs may be used concurrently.
package beet
