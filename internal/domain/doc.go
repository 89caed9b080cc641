// Package domain models the weather insights advisor core: classified
// request intents, the geographic units risk is ranked over, the weighted
// risk-correlation engine, and the outward response contract.
//
// # Two-tier assessment
//
// Hazard event types split into two fixed tiers (see [EventClassTable]):
//
//	minor  — localized advisories (rip currents, beach hazards, wind
//	         advisories, dense fog). Answered qualitatively from severity
//	         plus static vulnerable-group and action tables; no historical
//	         or demographic data is fetched.
//	major  — hurricanes, large-area floods, multi-day extreme heat,
//	         tornado outbreaks. Routed through the full data-driven
//	         correlation: forecast/alert severity joined with historical
//	         severity and demographics per geographic unit.
//
// Unknown event types classify as major — the expensive path over an
// understated risk. The table is configuration, not inference: the same
// event-type string always lands in the same tier.
//
// # Risk scoring
//
// Each unit scores as a weighted sum scaled to "risk out of 10":
//
//	score = (w_vuln·vulnerablePct + w_hist·historicalSeverity + w_path·inPath) × 10
//
// with default weights 0.3 / 0.4 / 0.3. The ordering is deterministic:
// descending score, ties broken by population descending, then unit id
// ascending. Scores are valid only within the request that produced them;
// weights may be tuned per deployment, so cached cross-request comparisons
// would be meaningless.
//
// # Resource derivation
//
// A ranked list partitions by rank thirds into three 6-hour action windows.
// Counts are ceilings of population-weighted sums over units in the hazard
// path:
//
//	medicalTransportUnits = ⌈Σ population·vulnerablePct / transportCapacity⌉
//	shelterCount          = ⌈Σ population / shelterCapacity⌉
//	firstResponderCount   = ⌈Σ first-window population / respondersPerCapita⌉
//
// An empty unit set produces an empty list and an all-zero plan, not an
// error. Zero-population units stay ranked (historical severity can matter
// for infrastructure) but contribute nothing to the sums.
package domain
