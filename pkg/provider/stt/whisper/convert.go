package whisper

import "encoding/binary"

// samplesFromPCM converts the 16-bit little-endian PCM an utterance carries
// into the normalised float32 mono samples the whisper.cpp bindings expect.
// Frames stay interleaved through the format converter when the capture
// device is stereo, so multi-channel input is down-mixed by averaging the
// channels at each sample position. A trailing partial sample is ignored.
func samplesFromPCM(pcm []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	perChannel := len(pcm) / (2 * channels)
	samples := make([]float32, perChannel)
	for i := 0; i < perChannel; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[off:]))) / 32768
		}
		samples[i] = sum / float32(channels)
	}
	return samples
}
