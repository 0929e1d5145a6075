// Package kmedoids partitions points into K groups around medoids, using
// only a precomputed pairwise distance table.
//
// Four initialisations are available (random, heuristic, k-medoids++ and
// build) and two refinement methods: alternate, which recentres every
// cluster on its best member until nothing moves, and pam, which applies
// the single most improving medoid/non-medoid swap per iteration.
//
// Fit is deterministic for a fixed Config.Seed. Every random draw is made
// during initialisation on one seeded generator; the parallel PAM swap
// search reduces its partial results in a fixed order.
package kmedoids
