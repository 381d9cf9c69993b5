package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

const (
	wavBytesPerSample = 2 // 16-bit PCM
	wavBitsPerSample  = 16
	wavPCMFormat      = 1
	wavChannels       = 1
	wavHeaderSize     = 44
)

// EncodeWAV renders mono float32 samples as a 16-bit PCM WAV file in
// memory. Samples are clipped to [-1, 1] before conversion.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataLen := len(samples) * wavBytesPerSample
	byteRate := sampleRate * wavChannels * wavBytesPerSample

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + dataLen)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavPCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels*wavBytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}

	return buf.Bytes()
}

// WriteWAVFile writes mono float32 samples to path as 16-bit PCM WAV.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	return os.WriteFile(path, EncodeWAV(samples, sampleRate), 0o644)
}

// DecodeWAV parses a mono 16-bit PCM WAV file produced by EncodeWAV (or
// by the external decoder) back into float32 samples and its sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bits := binary.LittleEndian.Uint16(data[34:36])
	if format != wavPCMFormat || channels != wavChannels || bits != wavBitsPerSample {
		return nil, 0, fmt.Errorf("unsupported wav layout: format=%d channels=%d bits=%d", format, channels, bits)
	}

	// Scan chunks for "data"; some encoders insert extra chunks (LIST,
	// fact) between fmt and data.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if id == "data" {
			pcm := data[off+8:]
			if size < len(pcm) {
				pcm = pcm[:size]
			}
			samples := make([]float32, len(pcm)/wavBytesPerSample)
			for i := range samples {
				v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
				samples[i] = float32(v) / 32767
			}
			return samples, int(sampleRate), nil
		}
		off += 8 + size
		if size%2 == 1 {
			off++
		}
	}
	return nil, 0, fmt.Errorf("wav data chunk not found")
}

// ReadWAVFile reads a mono 16-bit PCM WAV file from disk.
func ReadWAVFile(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return DecodeWAV(data)
}
