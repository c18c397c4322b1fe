// Package incident owns per-incident state: the immutable alert, the
// conversation history, and the lifecycle status. Each incident has exactly
// one Actor that serializes all mutations; the Manager maps incident IDs to
// their actors and creates them lazily on first access.
package incident
