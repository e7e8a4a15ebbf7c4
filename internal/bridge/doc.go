// Package bridge mirrors cue edits between a player context and an editor
// context.
//
// Two transports exist. The direct relay goes through a Coordinator: an
// editor asks to be bridged to the tab serving a URL, the Coordinator hands
// both sides each other's tab id, and afterwards either side forwards
// messages verbatim. The storage channel goes through the shared kv store:
// the editor announces the video id it is editing in currentlyEditingId and
// both sides exchange full cue lists through trackUpdates.
//
// Router picks the TrackStore persistence strategy from whichever transport
// is live. Both transports are last-write-wins and fire-and-forget.
package bridge
