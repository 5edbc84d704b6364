// Package wavio reads and writes RIFF/WAVE audio.
//
// DecodeMono accepts the PCM encodings the upload surface allows (8/16/24/32
// bit integer and 32-bit float) and averages multi-channel audio down to a
// single mono track of float64 samples in [-1, 1], which is the input
// contract of the feature extractors.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
	// Extensible WAVs wrap the real format tag; the first two bytes of the
	// sub-format GUID carry it.
	formatExtensible = 0xFFFE
)

// Clip is decoded mono audio with its source sample rate.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeMono parses a WAV payload into mono float64 samples.
func DecodeMono(data []byte) (Clip, error) {
	if len(data) < 12 {
		return Clip{}, errors.New("wav: payload too short for RIFF header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, errors.New("wav: not a RIFF/WAVE payload")
	}

	var (
		haveFormat    bool
		audioFormat   uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			// Tolerate a truncated trailing chunk; some encoders pad badly.
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Clip{}, errors.New("wav: fmt chunk too short")
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			if audioFormat == formatExtensible && chunkSize >= 40 {
				audioFormat = binary.LittleEndian.Uint16(data[body+24 : body+26])
			}
			haveFormat = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFormat {
		return Clip{}, errors.New("wav: missing fmt chunk")
	}
	if pcm == nil {
		return Clip{}, errors.New("wav: missing data chunk")
	}
	if channels <= 0 {
		return Clip{}, fmt.Errorf("wav: invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return Clip{}, fmt.Errorf("wav: invalid sample rate %d", sampleRate)
	}

	samples, err := decodeSamples(pcm, audioFormat, bitsPerSample, channels)
	if err != nil {
		return Clip{}, err
	}
	return Clip{Samples: samples, SampleRate: sampleRate}, nil
}

func decodeSamples(pcm []byte, audioFormat uint16, bitsPerSample, channels int) ([]float64, error) {
	bytesPerSample := bitsPerSample / 8
	if bytesPerSample <= 0 {
		return nil, fmt.Errorf("wav: invalid bits per sample %d", bitsPerSample)
	}
	frameSize := bytesPerSample * channels
	frames := len(pcm) / frameSize
	samples := make([]float64, frames)

	for frame := 0; frame < frames; frame++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			pos := frame*frameSize + ch*bytesPerSample
			value, err := decodeOne(pcm[pos:pos+bytesPerSample], audioFormat, bitsPerSample)
			if err != nil {
				return nil, err
			}
			sum += value
		}
		samples[frame] = sum / float64(channels)
	}
	return samples, nil
}

func decodeOne(raw []byte, audioFormat uint16, bitsPerSample int) (float64, error) {
	switch audioFormat {
	case formatPCM:
		switch bitsPerSample {
		case 8:
			// 8-bit WAV is unsigned.
			return (float64(raw[0]) - 128) / 128, nil
		case 16:
			v := int16(binary.LittleEndian.Uint16(raw))
			return float64(v) / 32768, nil
		case 24:
			v := int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			return float64(v) / 8388608, nil
		case 32:
			v := int32(binary.LittleEndian.Uint32(raw))
			return float64(v) / 2147483648, nil
		}
		return 0, fmt.Errorf("wav: unsupported PCM bit depth %d", bitsPerSample)
	case formatIEEEFloat:
		if bitsPerSample != 32 {
			return 0, fmt.Errorf("wav: unsupported float bit depth %d", bitsPerSample)
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	default:
		return 0, fmt.Errorf("wav: unsupported audio format %d", audioFormat)
	}
}

// EncodeMono16 writes samples as a 16-bit PCM mono WAV. Samples outside
// [-1, 1] are clipped.
func EncodeMono16(w io.Writer, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wav: invalid sample rate %d", sampleRate)
	}

	dataSize := len(samples) * 2
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	buf := make([]byte, 2)
	for _, sample := range samples {
		clipped := math.Max(-1, math.Min(1, sample))
		binary.LittleEndian.PutUint16(buf, uint16(int16(clipped*32767)))
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("wav: write sample: %w", err)
		}
	}
	return nil
}
