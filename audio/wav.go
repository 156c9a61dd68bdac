// Package audio reads and writes 16-bit PCM WAV takes and converts them into
// the float sample layouts the analysis pipeline consumes.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotWAV is returned when the stream is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("audio: not a WAVE stream")
	// ErrUnsupportedFormat is returned for anything but 16-bit integer PCM.
	ErrUnsupportedFormat = errors.New("audio: unsupported WAV format")
)

// WAVHeader holds the parsed RIFF/WAV header fields.
type WAVHeader struct {
	SampleRate    uint32
	BitsPerSample uint16
	NumChannels   uint16
	NumFrames     int // samples per channel
}

// ReadWAV reads a 16-bit PCM WAV stream of any rate and channel count and
// returns its samples interleaved, normalized to [-1, 1).
func ReadWAV(r io.ReadSeeker) ([]float32, WAVHeader, error) {
	var header WAVHeader

	var riff struct {
		ID   [4]byte
		Size uint32
		Wave [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, header, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Wave[:]) != "WAVE" {
		return nil, header, ErrNotWAV
	}

	var fmtFound bool
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, header, fmt.Errorf("read chunk header: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if err := readFmtChunk(r, chunk.Size, &header); err != nil {
				return nil, header, err
			}
			fmtFound = true

		case "data":
			if !fmtFound {
				return nil, header, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			samples, err := readDataChunk(r, chunk.Size, &header)
			if err != nil {
				return nil, header, err
			}
			return samples, header, nil

		default:
			// Skip unknown chunks; align to even boundary
			skip := int64(chunk.Size)
			if chunk.Size%2 != 0 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, header, fmt.Errorf("skip chunk %q: %w", chunk.ID, err)
			}
		}
	}

	if !fmtFound {
		return nil, header, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	return nil, header, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
}

// ReadWAVFile is a convenience wrapper that opens a file path.
func ReadWAVFile(path string) ([]float32, WAVHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WAVHeader{}, err
	}
	defer f.Close()
	return ReadWAV(f)
}

func readFmtChunk(r io.ReadSeeker, size uint32, h *WAVHeader) error {
	var f struct {
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if size < 16 {
		return fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAV, size)
	}
	if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
		return fmt.Errorf("read fmt chunk: %w", err)
	}
	if f.AudioFormat != 1 {
		return fmt.Errorf("%w: audio format %d (only PCM=1)", ErrUnsupportedFormat, f.AudioFormat)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("%w: %d bits per sample (only 16)", ErrUnsupportedFormat, f.BitsPerSample)
	}
	if f.NumChannels == 0 || f.SampleRate == 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, f.NumChannels, f.SampleRate)
	}
	h.NumChannels = f.NumChannels
	h.SampleRate = f.SampleRate
	h.BitsPerSample = f.BitsPerSample

	// Skip any extra fmt bytes, keeping the chunk word-aligned.
	if extra := int64(size) - 16 + int64(size%2); extra > 0 {
		if _, err := r.Seek(extra, io.SeekCurrent); err != nil {
			return fmt.Errorf("skip extra fmt bytes: %w", err)
		}
	}
	return nil
}

func readDataChunk(r io.Reader, size uint32, h *WAVHeader) ([]float32, error) {
	frameBytes := int(h.NumChannels) * 2
	frames := int(size) / frameBytes
	h.NumFrames = frames

	raw := make([]int16, frames*int(h.NumChannels))
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("read PCM data: %w", err)
	}

	samples := make([]float32, len(raw))
	for i, s := range raw {
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}

// WriteWAV writes interleaved samples as a 16-bit PCM WAV stream.
// Values outside [-1, 1] are clipped.
func WriteWAV(w io.Writer, samples []float32, sampleRate, channels int) error {
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate)
	}
	dataSize := uint32(len(samples) * 2)
	header := struct {
		RIFF          [4]byte
		Size          uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		Size:          36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 2),
		BlockAlign:    uint16(channels * 2),
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write WAV header: %w", err)
	}

	raw := make([]int16, len(samples))
	for i, s := range samples {
		switch {
		case s >= 1:
			raw[i] = 32767
		case s <= -1:
			raw[i] = -32768
		default:
			raw[i] = int16(s * 32768)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
		return fmt.Errorf("write PCM data: %w", err)
	}
	return nil
}

// Channel extracts one channel of an interleaved buffer as float64.
func Channel(interleaved []float32, channels, ch int) []float64 {
	if channels <= 0 || ch < 0 || ch >= channels {
		return nil
	}
	out := make([]float64, 0, len(interleaved)/channels)
	for i := ch; i < len(interleaved); i += channels {
		out = append(out, float64(interleaved[i]))
	}
	return out
}
