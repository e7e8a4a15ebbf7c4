// Package trackstore owns the cue list for one player session.
//
// Every mutation produces a new sorted list and hands it to the session's
// persistence strategy. Depending on the strategy the list is committed
// immediately, relayed to a bridged editor, folded into a draft, or written to
// shared storage and committed only when the write echoes back through
// LoadData. Subscribers on Changes observe each effective mutation once.
package trackstore
