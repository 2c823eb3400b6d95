package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// WAV header constants for canonical 16-bit mono PCM.
const (
	wavHeaderSize  = 44
	fmtChunkSize   = 16
	waveFormatPCM  = 1
	numChannels    = 1
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
)

// WAV encodes the sample buffer as a 16-bit mono PCM RIFF/WAVE file. Samples
// are clamped to [-1,1] and quantized with round-half-away-from-zero, so the
// output is byte-identical for identical input buffers.
func WAV(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * bytesPerSample
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	blockAlign := numChannels * bytesPerSample
	byteRate := sampleRate * blockAlign

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))

	for _, s := range samples {
		binary.Write(buf, binary.LittleEndian, quantize(s))
	}

	return buf.Bytes()
}

// quantize converts a [-1,1] float sample to int16. Negative samples scale by
// 0x8000 and positive by 0x7fff so both ends of the range are reachable.
func quantize(s float64) int16 {
	if s < -1 {
		s = -1
	} else if s > 1 {
		s = 1
	}
	if s < 0 {
		return int16(math.Round(s * 0x8000))
	}
	return int16(math.Round(s * 0x7fff))
}
