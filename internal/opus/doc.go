// Package opus turns audio into raw Opus packets.
//
// Transcode runs FFmpeg to produce an Opus-in-Ogg stream. PacketReader
// demultiplexes that stream and yields the audio packets, dropping the
// identification and comment headers that every Opus stream starts with.
//
// Packets are opaque here. Nothing in this package decodes or validates Opus.
package opus
