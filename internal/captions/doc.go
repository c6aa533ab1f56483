// Package captions reads SubRip (.srt) caption files and turns cues into
// the user turns fed to the director.
package captions
