// Package sdk implements the client side of the bulletin wire format: it
// splits blobs, submits chunks as independent transactions with bounded
// parallelism, and publishes a DAG-PB manifest tying them together.
package sdk

import (
	"context"
	"errors"
	"time"

	"github.com/bulletinlabs/bulletind/content"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
)

var (
	// ErrSubmissionFailed wraps any transport failure surfaced to the
	// caller. The chain state is unaffected by a failed submission.
	ErrSubmissionFailed = errors.New("submission failed")
)

type (
	// A Submitter delivers a store call to a node. Implementations wrap
	// whatever transport the caller uses; the SDK never retries
	// implicitly.
	Submitter interface {
		SubmitTransaction(ctx context.Context, data []byte) error
	}

	// A Receipt acknowledges one submitted chunk. Receipts may arrive in
	// any order; ChunkIndex ties them back to the splitter's output.
	Receipt struct {
		ChunkIndex int
		Cid        cid.Cid
		Size       int
	}

	// An UploadResult describes a completed chunked upload.
	UploadResult struct {
		Root     cid.Cid
		Manifest []byte
		Receipts []Receipt
	}

	uploadOptions struct {
		ChunkSize   int
		MaxParallel int
		Timeout     time.Duration
		Hashing     content.HashAlgorithm
	}

	// An UploadOption sets options for a chunked upload.
	UploadOption func(*uploadOptions)

	// A Client performs chunked uploads against a Submitter.
	Client struct {
		submitter Submitter
		log       *zap.Logger
	}
)

// WithChunkSize sets the splitter chunk size.
func WithChunkSize(n int) UploadOption {
	return func(o *uploadOptions) {
		o.ChunkSize = n
	}
}

// WithMaxParallel bounds the number of in-flight chunk submissions.
func WithMaxParallel(n int) UploadOption {
	return func(o *uploadOptions) {
		o.MaxParallel = n
	}
}

// WithTimeout bounds each chunk submission. On expiry the in-flight
// submission is cancelled and the upload fails.
func WithTimeout(d time.Duration) UploadOption {
	return func(o *uploadOptions) {
		o.Timeout = d
	}
}

// WithHashing selects the hash used for chunk and manifest CIDs.
func WithHashing(h content.HashAlgorithm) UploadOption {
	return func(o *uploadOptions) {
		o.Hashing = h
	}
}

// NewClient wraps a submitter.
func NewClient(s Submitter, log *zap.Logger) *Client {
	return &Client{submitter: s, log: log}
}
