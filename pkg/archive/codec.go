package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// Codec compresses sample blocks for storage. Timestamps are
// delta-of-delta encoded (sensor clocks tick almost uniformly, so the
// deltas of deltas are near zero), voltages are XOR encoded, and the
// result is zstd compressed.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec with the given compression level (1..4)
func NewCodec(level int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// EncodeSamples encodes a block of samples
func (c *Codec) EncodeSamples(samples []types.Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(samples))); err != nil {
		return nil, err
	}

	// Timestamps: first as-is, then delta-of-delta
	if err := binary.Write(buf, binary.LittleEndian, samples[0].Timestamp); err != nil {
		return nil, err
	}
	var prevDelta int64
	for i := 1; i < len(samples); i++ {
		delta := samples[i].Timestamp - samples[i-1].Timestamp
		if err := binary.Write(buf, binary.LittleEndian, delta-prevDelta); err != nil {
			return nil, err
		}
		prevDelta = delta
	}

	// Voltages: first as-is, then XOR against the previous value
	prevBits := math.Float64bits(samples[0].Voltage)
	if err := binary.Write(buf, binary.LittleEndian, prevBits); err != nil {
		return nil, err
	}
	for i := 1; i < len(samples); i++ {
		bits := math.Float64bits(samples[i].Voltage)
		if err := binary.Write(buf, binary.LittleEndian, bits^prevBits); err != nil {
			return nil, err
		}
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// DecodeSamples decodes a block encoded by EncodeSamples
func (c *Codec) DecodeSamples(data []byte) ([]types.Sample, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	buf := bytes.NewReader(decompressed)

	var count uint32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	// Each sample occupies 16 bytes of the decompressed payload; a count
	// beyond that is corruption, not a short read
	if int64(count)*16 > int64(buf.Len()) {
		return nil, fmt.Errorf("corrupt block: %d samples claimed in %d payload bytes", count, buf.Len())
	}

	samples := make([]types.Sample, count)

	if err := binary.Read(buf, binary.LittleEndian, &samples[0].Timestamp); err != nil {
		return nil, err
	}
	var prevDelta int64
	for i := 1; i < int(count); i++ {
		var dod int64
		if err := binary.Read(buf, binary.LittleEndian, &dod); err != nil {
			return nil, err
		}
		delta := dod + prevDelta
		samples[i].Timestamp = samples[i-1].Timestamp + delta
		prevDelta = delta
	}

	var prevBits uint64
	if err := binary.Read(buf, binary.LittleEndian, &prevBits); err != nil {
		return nil, err
	}
	samples[0].Voltage = math.Float64frombits(prevBits)
	for i := 1; i < int(count); i++ {
		var xor uint64
		if err := binary.Read(buf, binary.LittleEndian, &xor); err != nil {
			return nil, err
		}
		bits := xor ^ prevBits
		samples[i].Voltage = math.Float64frombits(bits)
		prevBits = bits
	}

	return samples, nil
}

// Close releases the codec resources
func (c *Codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
