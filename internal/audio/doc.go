// Package audio plays short alert sounds for notices. WAV, OGG and MP3 files
// are decoded once with beep and cached.
package audio
