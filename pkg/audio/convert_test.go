package audio

import (
	"errors"
	"testing"
)

func pcmOf(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

func TestFormatConverter_FastPathReturnsInputUnchanged(t *testing.T) {
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}
	in := AudioFrame{Data: pcmOf(1, 2, 3), SampleRate: 16000, Channels: 1}

	out, err := conv.Convert(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if &out.Data[0] != &in.Data[0] {
		t.Error("matching format should not copy the PCM data")
	}
}

func TestFormatConverter_OddByteCountFails(t *testing.T) {
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}
	_, err := conv.Convert(AudioFrame{Data: []byte{1, 2, 3}, SampleRate: 16000, Channels: 1})

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("err = %v, want *ConversionError", err)
	}
}

func TestFormatConverter_StereoToMonoAverages(t *testing.T) {
	conv := FormatConverter{Target: Format{SampleRate: 48000, Channels: 1}}
	in := AudioFrame{Data: pcmOf(100, 200, -50, 50), SampleRate: 48000, Channels: 2}

	out, err := conv.Convert(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := pcmOf(150, 0)
	if len(out.Data) != len(want) {
		t.Fatalf("len = %d, want %d", len(out.Data), len(want))
	}
	for i := range want {
		if out.Data[i] != want[i] {
			t.Fatalf("sample bytes = %v, want %v", out.Data, want)
		}
	}
}

func TestFormatConverter_DownsampleHalvesSampleCount(t *testing.T) {
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}
	in := AudioFrame{Data: make([]byte, 640), SampleRate: 32000, Channels: 1}

	out, err := conv.Convert(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(out.Data) != 320 {
		t.Errorf("len = %d, want 320", len(out.Data))
	}
	if out.SampleRate != 16000 || out.Channels != 1 {
		t.Errorf("format = %d/%d, want 16000/1", out.SampleRate, out.Channels)
	}
}

func TestFormatConverter_NFramesInNFramesOut(t *testing.T) {
	conv := FormatConverter{Target: Format{SampleRate: 16000, Channels: 1}}

	const n = 25
	var got int
	for i := 0; i < n; i++ {
		frame := AudioFrame{Data: make([]byte, 1920), SampleRate: 48000, Channels: 2}
		if _, err := conv.Convert(frame); err == nil {
			got++
		}
	}
	if got != n {
		t.Errorf("converted %d of %d frames", got, n)
	}
}

func TestResampleMono16_SameRateIsIdentity(t *testing.T) {
	in := pcmOf(1, 2, 3, 4)
	out := ResampleMono16(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Error("same-rate resample should return the input slice")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := pcmOf(10, -10, 32000, -32000)
	wav := EncodeWAV(pcm, 22050, 1)

	got, format, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format.SampleRate != 22050 || format.Channels != 1 {
		t.Errorf("format = %s, want 22050Hz mono", format)
	}
	if len(got) != len(pcm) {
		t.Fatalf("pcm len = %d, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatal("decoded PCM differs from original")
		}
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("definitely not a wav file, not even close")); err == nil {
		t.Fatal("expected an error for non-WAV input")
	}
}

func TestRMS_SilenceIsZero(t *testing.T) {
	if got := RMS(make([]byte, 320)); got != 0 {
		t.Errorf("RMS(silence) = %f, want 0", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
}

func TestRMS_LoudSignalIsLoud(t *testing.T) {
	loud := make([]int16, 160)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 20000
		} else {
			loud[i] = -20000
		}
	}
	if got := RMS(pcmOf(loud...)); got < 19000 {
		t.Errorf("RMS(square wave) = %f, want ~20000", got)
	}
}
