package content

import (
	"errors"
	"fmt"

	"github.com/ipfs/boxo/ipld/merkledag"
	"github.com/ipfs/boxo/ipld/unixfs"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	format "github.com/ipfs/go-ipld-format"
	"github.com/multiformats/go-multicodec"
)

// MaxManifestLinks bounds the number of chunk links in a manifest. The DAG
// is flat; blobs needing a deeper tree are rejected.
const MaxManifestLinks = 1_000_000

// ErrTooManyLinks is returned when a blob splits into more chunks than a
// flat manifest can carry.
var ErrTooManyLinks = errors.New("too many links")

// A Manifest is the UnixFS DAG-PB root describing a chunked blob. Raw is
// the canonical on-wire encoding: links first, then the UnixFS Data field,
// byte-identical to what an IPFS peer would produce.
type Manifest struct {
	Root      cid.Cid
	Raw       []byte
	ChunkCids []cid.Cid
	FileSize  uint64
}

// BuildManifest builds the DAG-PB manifest for a split blob. Chunk CIDs use
// the raw codec; the root CID uses dag-pb. Both use the given hashing.
func BuildManifest(chunks []Chunk, hashing HashAlgorithm) (*Manifest, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyData
	} else if len(chunks) > MaxManifestLinks {
		return nil, fmt.Errorf("%w: %d chunks", ErrTooManyLinks, len(chunks))
	}

	fsn := unixfs.NewFSNode(unixfs.TFile)
	chunkCids := make([]cid.Cid, 0, len(chunks))
	for _, c := range chunks {
		leaf, err := Calculate(c.Data, CidConfig{Codec: multicodec.Raw, Hashing: hashing})
		if err != nil {
			return nil, fmt.Errorf("failed to calculate chunk cid: %w", err)
		}
		chunkCids = append(chunkCids, leaf.Cid)
		fsn.AddBlockSize(uint64(len(c.Data)))
	}

	buf, err := fsn.GetBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode unixfs node: %w", err)
	}

	nd := merkledag.NodeWithData(buf)
	if err := nd.SetCidBuilder(cid.V1Builder{Codec: uint64(multicodec.DagPb), MhType: uint64(hashing), MhLength: HashSize}); err != nil {
		return nil, fmt.Errorf("failed to set cid builder: %w", err)
	}
	for i, c := range chunkCids {
		err := nd.AddRawLink("", &format.Link{
			Cid:  c,
			Size: uint64(len(chunks[i].Data)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add link: %w", err)
		}
	}

	raw, err := nd.EncodeProtobuf(false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return &Manifest{
		Root:      nd.Cid(),
		Raw:       raw,
		ChunkCids: chunkCids,
		FileSize:  fsn.FileSize(),
	}, nil
}

// ParseManifest decodes a DAG-PB manifest and returns its chunk links,
// file size and block sizes.
func ParseManifest(raw []byte) (links []cid.Cid, fileSize uint64, blockSizes []uint64, err error) {
	nd, err := merkledag.DecodeProtobuf(raw)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	fsn, err := unixfs.FSNodeFromBytes(nd.Data())
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to decode unixfs node: %w", err)
	} else if fsn.Type() != unixfs.TFile {
		return nil, 0, nil, fmt.Errorf("unexpected unixfs type %d", fsn.Type())
	}
	for _, l := range nd.Links() {
		links = append(links, l.Cid)
	}
	for i := range links {
		blockSizes = append(blockSizes, fsn.BlockSize(i))
	}
	return links, fsn.FileSize(), blockSizes, nil
}

// VerifyChunk checks that data hashes to the expected chunk CID.
func VerifyChunk(c cid.Cid, data []byte) error {
	actual, err := c.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("failed to hash chunk: %w", err)
	} else if !actual.Equals(c) {
		return fmt.Errorf("chunk %s: %w", c, blocks.ErrWrongHash)
	}
	return nil
}
