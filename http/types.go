package http

import (
	"github.com/bulletinlabs/bulletind/content"
	"github.com/bulletinlabs/bulletind/hop"
)

type (
	// HopSubmitRequest is the body of [POST] /api/hop/submit. Byte fields
	// are base64 in JSON.
	HopSubmitRequest struct {
		Data       []byte   `json:"data"`
		Recipients [][]byte `json:"recipients"`
		Proof      []byte   `json:"proof"`
	}

	// HopSubmitResponse is the response of [POST] /api/hop/submit.
	HopSubmitResponse struct {
		Hash       []byte     `json:"hash"`
		PoolStatus hop.Status `json:"poolStatus"`
	}

	// HopClaimRequest is the body of [POST] /api/hop/claim.
	HopClaimRequest struct {
		Hash      []byte `json:"hash"`
		Signature []byte `json:"signature"`
	}

	// HopClaimResponse is the response of [POST] /api/hop/claim.
	HopClaimResponse struct {
		Data []byte `json:"data"`
	}

	// ErrorResponse carries a stable numeric code alongside the message.
	ErrorResponse struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	// TxSubmitRequest is the body of [POST] /api/tx. A nil Account submits
	// the call unsigned; CidConfig selects a non-default codec/hash.
	TxSubmitRequest struct {
		Data      []byte             `json:"data"`
		Account   []byte             `json:"account,omitempty"`
		CidConfig *content.CidConfig `json:"cidConfig,omitempty"`
	}

	// TxSubmitResponse acknowledges a queued store call.
	TxSubmitResponse struct {
		ContentHash []byte `json:"contentHash"`
		Cid         []byte `json:"cid"`
	}

	// RenewRequest is the body of [POST] /api/tx/renew.
	RenewRequest struct {
		Block   uint64 `json:"block"`
		Index   int    `json:"index"`
		Account []byte `json:"account,omitempty"`
	}

	// TipResponse is the response of [GET] /api/chain/tip.
	TipResponse struct {
		Height uint64 `json:"height"`
	}

	// AuthorizeAccountRequest is the body of [POST] /api/authorize/account.
	AuthorizeAccountRequest struct {
		Account      []byte `json:"account"`
		Transactions uint32 `json:"transactions"`
		Bytes        uint64 `json:"bytes"`
	}

	// AuthorizePreimageRequest is the body of [POST] /api/authorize/preimage.
	AuthorizePreimageRequest struct {
		ContentHash []byte `json:"contentHash"`
		MaxSize     uint64 `json:"maxSize"`
	}

	// AccountRequest names an account for refresh and remove endpoints.
	AccountRequest struct {
		Account []byte `json:"account"`
	}

	// PreimageRequest names a preimage scope for refresh and remove
	// endpoints.
	PreimageRequest struct {
		ContentHash []byte `json:"contentHash"`
	}
)
