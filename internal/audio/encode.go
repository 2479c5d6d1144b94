package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodePCM16 converts normalized float32 samples into a complete mono 16-bit
// PCM WAV payload. The recognition engine uploads chunks in this format.
func EncodePCM16(samples []float32, sampleRate int) []byte {
	dataSize := uint32(len(samples) * 2)
	buf := bytes.NewBuffer(make([]byte, 0, 44+int(dataSize)))

	buf.Write(pcmHeader(sampleRate, 1, dataSize))

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	}

	return buf.Bytes()
}

// pcmHeader builds a 44-byte RIFF/WAVE header for 16-bit PCM
func pcmHeader(sampleRate, channels int, dataSize uint32) []byte {
	bitsPerSample := uint16(16)
	byteRate := uint32(sampleRate * channels * int(bitsPerSample/8))
	blockAlign := uint16(channels * int(bitsPerSample/8))

	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM subchunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	return header
}
