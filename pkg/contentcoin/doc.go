// Package contentcoin turns a piece of content (a scraped blog post, an
// uploaded image or an audio track) into an on-chain coin and keeps an
// off-chain catalog of the coins that were created.
//
// The write path is a Pipeline that runs Normalizer, Publisher, a
// ChainSession, a CatalogStore and a Notifier in order. Deploying the token
// is the point of no return: every failure before it aborts the run, every
// failure after it is reported as a warning next to a successful result.
//
// The read path is the Aggregator, which joins catalog rows with live token
// statistics from a StatsSource and ranks creators by their best coin.
//
// Storage, chain, stats and notification backends live in subpackages and
// are wired together by the config package.
package contentcoin
