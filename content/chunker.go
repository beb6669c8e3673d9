package content

import (
	"errors"
	"fmt"
)

const (
	// MaxBlobSize is the largest blob the splitter accepts.
	MaxBlobSize = 64 << 20
	// MaxChunkSize is the largest chunk the splitter produces.
	MaxChunkSize = 2 << 20
)

var (
	// ErrEmptyData is returned when a blob has no bytes.
	ErrEmptyData = errors.New("empty data")
	// ErrBlobTooLarge is returned when a blob exceeds MaxBlobSize.
	ErrBlobTooLarge = errors.New("blob too large")
	// ErrBadChunkSize is returned when the chunk size is outside
	// (0, MaxChunkSize].
	ErrBadChunkSize = errors.New("bad chunk size")
)

// A Chunk is a fixed-size slice of a blob. Index and Total let a client
// reassemble the blob from chunks received in any order.
type Chunk struct {
	Index uint32 `json:"index"`
	Total uint32 `json:"total"`
	Data  []byte `json:"data"`
}

// Split splits data into ceil(len/chunkSize) chunks. Every chunk except
// possibly the last has exactly chunkSize bytes.
func Split(data []byte, chunkSize int) ([]Chunk, error) {
	switch {
	case len(data) == 0:
		return nil, ErrEmptyData
	case len(data) > MaxBlobSize:
		return nil, fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, len(data))
	case chunkSize <= 0 || chunkSize > MaxChunkSize:
		return nil, fmt.Errorf("%w: %d", ErrBadChunkSize, chunkSize)
	}

	total := uint32((len(data) + chunkSize - 1) / chunkSize)
	chunks := make([]Chunk, 0, total)
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		buf := make([]byte, end-i)
		copy(buf, data[i:end])
		chunks = append(chunks, Chunk{
			Index: uint32(len(chunks)),
			Total: total,
			Data:  buf,
		})
	}
	return chunks, nil
}

// Reassemble joins chunks back into the original blob. It rejects input
// whose declared total disagrees with the actual count or whose indices
// are non-sequential.
func Reassemble(chunks []Chunk) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyData
	}

	var size int
	for i, c := range chunks {
		if c.Total != uint32(len(chunks)) {
			return nil, fmt.Errorf("chunk %d declares %d chunks, have %d", i, c.Total, len(chunks))
		} else if c.Index != uint32(i) {
			return nil, fmt.Errorf("chunk %d has index %d", i, c.Index)
		} else if len(c.Data) == 0 {
			return nil, fmt.Errorf("chunk %d: %w", i, ErrEmptyData)
		}
		size += len(c.Data)
	}

	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c.Data...)
	}
	return data, nil
}
