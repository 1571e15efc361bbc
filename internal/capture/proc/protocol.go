// Package proc implements the real capture provider. It spawns the
// platform capture helper process and parses its packet stream into
// track samples.
package proc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Stream header and packet header sizes
const (
	StreamHeaderSize = 16
	PacketHeaderSize = 12
)

// Stream magic, first four bytes of every track stream
const StreamMagic = uint32(0x43534350) // "CSCP" in ASCII

// Packet flags
const (
	PacketFlagConfig   = uint64(1) << 63
	PacketFlagKeyFrame = uint64(1) << 62
	PacketPTSMask      = PacketFlagKeyFrame - 1
)

// Codec fourcc values
const (
	CodecH264 = uint32(0x68323634) // "h264" in ASCII
	CodecOpus = uint32(0x6f707573) // "opus" in ASCII
)

// Payload sanity limits
const (
	maxVideoPacketSize = 10 * 1024 * 1024
	maxAudioPacketSize = 1 * 1024 * 1024
)

// StreamHeader describes one track stream emitted by the helper.
type StreamHeader struct {
	Codec  uint32
	Width  uint32
	Height uint32
}

// Packet is one media packet from a track stream.
type Packet struct {
	PTS        uint64
	Data       []byte
	IsKeyFrame bool
	IsConfig   bool
}

// ReadStreamHeader reads and validates the 16-byte stream header.
func ReadStreamHeader(reader io.Reader) (*StreamHeader, error) {
	header := make([]byte, StreamHeaderSize)
	if _, err := io.ReadFull(reader, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read stream header: %w", err)
	}

	magic := binary.BigEndian.Uint32(header[0:4])
	if magic != StreamMagic {
		return nil, fmt.Errorf("bad stream magic: %#08x", magic)
	}

	codec := binary.BigEndian.Uint32(header[4:8])
	switch codec {
	case CodecH264, CodecOpus:
	default:
		return nil, fmt.Errorf("unknown stream codec: %#08x", codec)
	}

	return &StreamHeader{
		Codec:  codec,
		Width:  binary.BigEndian.Uint32(header[8:12]),
		Height: binary.BigEndian.Uint32(header[12:16]),
	}, nil
}

// ReadPacket reads one packet from a track stream. Returns io.EOF when
// the stream ends cleanly on a packet boundary.
func ReadPacket(reader io.Reader, maxSize uint32) (*Packet, error) {
	header := make([]byte, PacketHeaderSize)
	n, err := io.ReadFull(reader, header)
	if err != nil {
		if n == 0 && err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read packet header: %w", err)
	}

	ptsFlags := binary.BigEndian.Uint64(header[0:8])
	packetSize := binary.BigEndian.Uint32(header[8:12])

	if packetSize == 0 {
		return nil, fmt.Errorf("invalid packet size: 0")
	}
	if packetSize > maxSize {
		return nil, fmt.Errorf("packet size too large: %d", packetSize)
	}

	data := make([]byte, packetSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("failed to read packet data: %w", err)
	}

	return &Packet{
		PTS:        ptsFlags & PacketPTSMask,
		Data:       data,
		IsKeyFrame: (ptsFlags & PacketFlagKeyFrame) != 0,
		IsConfig:   (ptsFlags & PacketFlagConfig) != 0,
	}, nil
}

// WriteStreamHeader emits a stream header. Used by the fake helper in
// tests and available to helper implementations written in Go.
func WriteStreamHeader(w io.Writer, h *StreamHeader) error {
	buf := make([]byte, StreamHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], StreamMagic)
	binary.BigEndian.PutUint32(buf[4:8], h.Codec)
	binary.BigEndian.PutUint32(buf[8:12], h.Width)
	binary.BigEndian.PutUint32(buf[12:16], h.Height)
	_, err := w.Write(buf)
	return err
}

// WritePacket emits one packet.
func WritePacket(w io.Writer, p *Packet) error {
	ptsFlags := p.PTS & PacketPTSMask
	if p.IsConfig {
		ptsFlags |= PacketFlagConfig
	}
	if p.IsKeyFrame {
		ptsFlags |= PacketFlagKeyFrame
	}

	buf := make([]byte, PacketHeaderSize)
	binary.BigEndian.PutUint64(buf[0:8], ptsFlags)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(p.Data)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(p.Data)
	return err
}
