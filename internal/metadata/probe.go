package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// techInfo holds the technical data probed from an audio stream. Zero
// fields mean the probe could not determine the value.
type techInfo struct {
	duration   int // seconds
	bitrate    int // bits per second
	sampleRate int // Hz
}

// probeTechnical determines duration, bitrate and sample rate per format.
// Probing is best-effort: a failed probe logs a warning and leaves the
// fields zeroed rather than failing the extraction.
func (e *Extractor) probeTechnical(filePath string, fileSize int64) techInfo {
	var info techInfo
	var err error

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		info, err = probeMP3(filePath, fileSize)
	case ".flac":
		info, err = probeFLAC(filePath, fileSize)
	case ".wav":
		info, err = probeWAV(filePath)
	case ".m4a":
		info, err = probeM4A(filePath, fileSize)
	default:
		err = errUnsupportedFormat
	}

	if err != nil {
		e.logger.WithField("filePath", filePath).WithError(err).Warn("Technical probe failed, leaving fields zeroed")
	}
	return info
}

// MP3 duration using frame decoding; bitrate is derived from file size over
// duration, which averages correctly for VBR streams.
func probeMP3(path string, fileSize int64) (techInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return techInfo{}, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 { // could not decode any frame
				return techInfo{}, err
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}

	info := techInfo{duration: int(total.Seconds())}
	if info.duration > 0 {
		info.bitrate = int(fileSize * 8 / int64(info.duration))
	}
	return info, nil
}

// FLAC duration and sample rate via the STREAMINFO metadata block.
func probeFLAC(path string, fileSize int64) (techInfo, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return techInfo{}, err
	}
	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return techInfo{}, fmt.Errorf("flac stream missing sample info")
	}

	secs := float64(si.NSamples) / float64(si.SampleRate)
	info := techInfo{
		duration:   int(secs + 0.5),
		sampleRate: int(si.SampleRate),
	}
	if info.duration > 0 {
		info.bitrate = int(fileSize * 8 / int64(info.duration))
	}
	return info, nil
}

// WAV duration using go-audio/wav to read the header; byte rate follows
// directly from the header fields.
func probeWAV(path string) (techInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return techInfo{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return techInfo{}, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return techInfo{}, fmt.Errorf("invalid wav header")
	}

	// Approximate using file size; full sample count would require decoding
	// every sample.
	st, err := f.Stat()
	if err != nil {
		return techInfo{}, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return techInfo{}, fmt.Errorf("invalid sample frame size")
	}
	sampleFrames := pcmBytes / bytesPerSampleFrame
	secs := float64(sampleFrames) / float64(dec.SampleRate)

	return techInfo{
		duration:   int(secs + 0.5),
		bitrate:    int(dec.SampleRate) * int(dec.BitDepth) * int(dec.NumChans),
		sampleRate: int(dec.SampleRate),
	}, nil
}

// M4A (AAC in MP4) minimal duration parsing: read the mvhd timescale and
// duration. Lightweight manual atom scan to avoid pulling a large dep.
func probeM4A(path string, fileSize int64) (techInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return techInfo{}, err
	}
	defer f.Close()

	for {
		head := make([]byte, 8)
		if err := readFull(f, head); err != nil {
			return techInfo{}, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return techInfo{}, fmt.Errorf("invalid atom size")
		}
		if atom == "moov" {
			// scan inside moov for mvhd
			limit := int64(size) - 8
			for read := int64(0); read < limit; {
				subHead := make([]byte, 8)
				if err := readFull(f, subHead); err != nil {
					return techInfo{}, err
				}
				subSize := binary.BigEndian.Uint32(subHead[0:4])
				subAtom := string(subHead[4:8])
				if subAtom == "mvhd" {
					version := make([]byte, 1)
					if err := readFull(f, version); err != nil {
						return techInfo{}, err
					}
					var skip int64
					if version[0] == 1 { // 64-bit
						skip = 3 + 8 + 8 // flags + creation + mod times (64-bit)
					} else {
						skip = 3 + 4 + 4 // flags + times (32-bit)
					}
					if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
						return techInfo{}, err
					}
					tsBuf := make([]byte, 4)
					if err := readFull(f, tsBuf); err != nil {
						return techInfo{}, err
					}
					timescale := binary.BigEndian.Uint32(tsBuf)
					durBuf := make([]byte, 4)
					if err := readFull(f, durBuf); err != nil {
						return techInfo{}, err
					}
					durUnits := binary.BigEndian.Uint32(durBuf)
					if timescale == 0 {
						return techInfo{}, fmt.Errorf("invalid timescale")
					}
					secs := float64(durUnits) / float64(timescale)

					info := techInfo{
						duration:   int(secs + 0.5),
						sampleRate: int(timescale),
					}
					if info.duration > 0 {
						info.bitrate = int(fileSize * 8 / int64(info.duration))
					}
					return info, nil
				}
				// skip remainder of sub atom
				if subSize < 8 {
					return techInfo{}, fmt.Errorf("invalid sub-atom size")
				}
				if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
					return techInfo{}, err
				}
				read += int64(subSize)
			}
			break
		}
		// skip rest of atom
		if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
			return techInfo{}, err
		}
	}
	return techInfo{}, fmt.Errorf("mvhd atom not found")
}
