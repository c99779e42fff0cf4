// Package queue drives pipelined fetch and playback of an ordered chunk
// list: chunk i+1 is fetched while chunk i plays, chunks never play out of
// order during sequential playback, and playback always waits for a chunk
// to be ready instead of skipping it.
package queue
