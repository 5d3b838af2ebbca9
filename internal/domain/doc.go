// Package domain models social hazard intelligence for coastal monitoring.
//
// # Data Source
//
// Raw items originate from public social content providers (microblog search,
// video search, news feeds). Each connector queries its provider once per
// hazard category term, normalizes the provider payload into a [RawItem], and
// hands the batch to the classification pipeline. Provider-specific payload
// shapes never cross the connector boundary.
//
// # Hazard Taxonomy
//
// The label set is fixed: Tsunami, Cyclone, StormSurge, HighWaves, Flood,
// Landslide, Earthquake, CoastalErosion, and Other. Classification always
// produces a label — when the remote zero-shot classifier is unreachable a
// deterministic keyword fallback guarantees one.
//
// # Engagement Conventions
//
// Provider engagement counters are passed through as-is when present. Absent
// counters are represented by [Engagement] with Known=false rather than
// synthesized values, so priority scores stay reproducible: unknown engagement
// contributes zero to every engagement-weighted term.
//
// # Priority Score
//
// PriorityScore is a deterministic function of the classification, entities,
// engagement, and verification metadata, written exactly once by the scorer
// and read-only afterwards. See the score package for the additive formula.
//
// # ID Generation
//
// Connector items keep their provider-native ID prefixed with the source name,
// which makes the fan-out merge dedupe stable across overlapping sub-queries.
// User submissions get a deterministic SHA-256 hash of source|author|text|time,
// enabling idempotent persistence and replay safety. See [GenerateItemID].
package domain
