package sdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bulletinlabs/bulletind/content"
	"go.uber.org/zap"
)

const (
	defaultChunkSize   = 1 << 20
	defaultMaxParallel = 4
)

func (c *Client) submitOne(ctx context.Context, data []byte, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.submitter.SubmitTransaction(ctx, data); err != nil {
		return fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
	}
	return nil
}

// UploadBlob splits data, submits every chunk as its own transaction with
// at most MaxParallel submissions in flight, then submits the DAG-PB
// manifest. Chunk receipts are returned in chunk order regardless of
// completion order.
func (c *Client) UploadBlob(ctx context.Context, data []byte, opts ...UploadOption) (*UploadResult, error) {
	opt := uploadOptions{
		ChunkSize:   defaultChunkSize,
		MaxParallel: defaultMaxParallel,
		Hashing:     content.HashBlake2b256,
	}
	for _, o := range opts {
		o(&opt)
	}
	if opt.MaxParallel < 1 {
		opt.MaxParallel = 1
	}

	chunks, err := content.Split(data, opt.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to split blob: %w", err)
	}
	manifest, err := content.BuildManifest(chunks, opt.Hashing)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	receipts := make([]Receipt, len(chunks))
	errCh := make(chan error, len(chunks))
	sem := make(chan struct{}, opt.MaxParallel)

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, fmt.Errorf("%w: %s", ErrSubmissionFailed, ctx.Err())
		}

		wg.Add(1)
		go func(i int, chunk content.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := c.submitOne(ctx, chunk.Data, opt.Timeout); err != nil {
				errCh <- fmt.Errorf("chunk %d: %w", i, err)
				cancel()
				return
			}
			receipts[i] = Receipt{
				ChunkIndex: i,
				Cid:        manifest.ChunkCids[i],
				Size:       len(chunk.Data),
			}
			c.log.Debug("submitted chunk",
				zap.Int("index", i),
				zap.Int("size", len(chunk.Data)))
		}(i, chunk)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	if err := c.submitOne(ctx, manifest.Raw, opt.Timeout); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	c.log.Debug("submitted manifest",
		zap.Stringer("root", manifest.Root),
		zap.Int("chunks", len(chunks)))

	return &UploadResult{
		Root:     manifest.Root,
		Manifest: manifest.Raw,
		Receipts: receipts,
	}, nil
}
