// Package audio decodes synthesized speech and plays it through a single
// active playback graph.
//
// A graph is the source, speed and gain stages built around one decoded
// Buffer. At most one graph exists at a time; starting a new one releases
// the previous one first. Volume and speed are controller-wide settings
// copied into each new graph and updated live on the active one.
package audio
