package http

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bulletinlabs/bulletind/chain"
	"github.com/bulletinlabs/bulletind/content"
	"github.com/bulletinlabs/bulletind/hop"
	"go.sia.tech/jape"
	"go.uber.org/zap"
)

type (
	hopServer struct {
		pool     *hop.Pool
		node     *chain.Node
		verifier hop.PersonhoodVerifier
		log      *zap.Logger
	}

	apiServer struct {
		node *chain.Node
		log  *zap.Logger
	}
)

func parseHash(b []byte) (content.ContentHash, bool) {
	var h content.ContentHash
	if len(b) != content.HashSize {
		return content.ContentHash{}, false
	}
	copy(h[:], b)
	return h, true
}

// writeHopError writes the pool error as a JSON body carrying its stable
// numeric code.
func writeHopError(jc jape.Context, err error) {
	var he *hop.Error
	if !errors.As(err, &he) {
		jc.Error(err, http.StatusInternalServerError)
		return
	}

	status := http.StatusBadRequest
	switch he.Code {
	case hop.CodeNotFound:
		status = http.StatusNotFound
	case hop.CodeDuplicateEntry:
		status = http.StatusConflict
	case hop.CodeDataTooLarge:
		status = http.StatusRequestEntityTooLarge
	case hop.CodePoolFull:
		status = http.StatusInsufficientStorage
	case hop.CodeNotRecipient:
		status = http.StatusForbidden
	}
	jc.ResponseWriter.Header().Set("Content-Type", "application/json")
	jc.ResponseWriter.WriteHeader(status)
	json.NewEncoder(jc.ResponseWriter).Encode(ErrorResponse{Code: int(he.Code), Message: he.Message})
}

func (hs *hopServer) handleSubmit(jc jape.Context) {
	var req HopSubmitRequest
	if err := jc.Decode(&req); err != nil {
		return
	}

	if err := hs.verifier.VerifyPersonhood(req.Proof); err != nil {
		jc.Error(err, http.StatusForbidden)
		return
	}

	recipients := make([]ed25519.PublicKey, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		if len(r) != ed25519.PublicKeySize {
			writeHopError(jc, hop.ErrInvalidRecipientKey)
			return
		}
		recipients = append(recipients, ed25519.PublicKey(r))
	}

	h, err := hs.pool.Insert(req.Data, hs.node.Height(), recipients)
	if err != nil {
		writeHopError(jc, err)
		return
	}
	jc.Encode(HopSubmitResponse{
		Hash:       h[:],
		PoolStatus: hs.pool.Status(),
	})
}

func (hs *hopServer) handleClaim(jc jape.Context) {
	var req HopClaimRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	h, ok := parseHash(req.Hash)
	if !ok {
		writeHopError(jc, hop.ErrEncoding)
		return
	}
	data, err := hs.pool.Claim(h, req.Signature)
	if err != nil {
		writeHopError(jc, err)
		return
	}
	jc.Encode(HopClaimResponse{Data: data})
}

func (hs *hopServer) handleStatus(jc jape.Context) {
	jc.Encode(hs.pool.Status())
}

// NewHopHandler returns the public hand-off pool API.
func NewHopHandler(pool *hop.Pool, node *chain.Node, verifier hop.PersonhoodVerifier, log *zap.Logger) http.Handler {
	hs := &hopServer{
		pool:     pool,
		node:     node,
		verifier: verifier,
		log:      log,
	}
	return jape.Mux(map[string]jape.Handler{
		"POST /api/hop/submit": hs.handleSubmit,
		"POST /api/hop/claim":  hs.handleClaim,
		"GET /api/hop/status":  hs.handleStatus,
	})
}

func origin(account []byte) (chain.Origin, bool) {
	if account == nil {
		return chain.Unsigned(), true
	}
	if len(account) != 32 {
		return chain.Origin{}, false
	}
	var who chain.AccountID
	copy(who[:], account)
	return chain.Signed(who), true
}

func (as *apiServer) handleTxSubmit(jc jape.Context) {
	var req TxSubmitRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	o, ok := origin(req.Account)
	if !ok {
		jc.Error(errors.New("account must be 32 bytes"), http.StatusBadRequest)
		return
	}

	cfg := content.DefaultCidConfig()
	var call chain.Call = chain.StoreCall{Data: req.Data}
	if req.CidConfig != nil {
		cfg = *req.CidConfig
		call = chain.StoreWithCidConfigCall{CidConfig: cfg, Data: req.Data}
	}
	c, err := content.Calculate(req.Data, cfg)
	if err != nil {
		jc.Error(err, http.StatusBadRequest)
		return
	}

	as.node.SubmitCall(o, call)
	jc.Encode(TxSubmitResponse{
		ContentHash: c.ContentHash[:],
		Cid:         c.Cid.Bytes(),
	})
}

func (as *apiServer) handleRenew(jc jape.Context) {
	var req RenewRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	o, ok := origin(req.Account)
	if !ok {
		jc.Error(errors.New("account must be 32 bytes"), http.StatusBadRequest)
		return
	}
	as.node.SubmitCall(o, chain.RenewCall{Block: req.Block, Index: req.Index})
}

func (as *apiServer) handleTip(jc jape.Context) {
	jc.Encode(TipResponse{Height: as.node.Height()})
}

func (as *apiServer) handleBlob(jc jape.Context) {
	var hashStr string
	if err := jc.DecodeParam("hash", &hashStr); err != nil {
		return
	}
	buf, err := hex.DecodeString(hashStr)
	if err != nil {
		jc.Error(err, http.StatusBadRequest)
		return
	}
	h, ok := parseHash(buf)
	if !ok {
		jc.Error(errors.New("hash must be 32 bytes"), http.StatusBadRequest)
		return
	}
	data, err := as.node.Blob(h)
	if errors.Is(err, chain.ErrNotFound) {
		jc.Error(err, http.StatusNotFound)
		return
	} else if err != nil {
		jc.Error(err, http.StatusInternalServerError)
		return
	}
	jc.ResponseWriter.Header().Set("Content-Type", "application/octet-stream")
	jc.ResponseWriter.Write(data)
}

func (as *apiServer) handleAuthorizeAccount(jc jape.Context) {
	var req AuthorizeAccountRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	if len(req.Account) != 32 {
		jc.Error(errors.New("account must be 32 bytes"), http.StatusBadRequest)
		return
	}
	var who chain.AccountID
	copy(who[:], req.Account)
	as.node.SubmitCall(chain.Authorizer(), chain.AuthorizeAccountCall{
		Who:          who,
		Transactions: req.Transactions,
		Bytes:        req.Bytes,
	})
}

func (as *apiServer) handleAuthorizePreimage(jc jape.Context) {
	var req AuthorizePreimageRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	h, ok := parseHash(req.ContentHash)
	if !ok {
		jc.Error(errors.New("content hash must be 32 bytes"), http.StatusBadRequest)
		return
	}
	as.node.SubmitCall(chain.Authorizer(), chain.AuthorizePreimageCall{
		ContentHash: h,
		MaxSize:     req.MaxSize,
	})
}

func (as *apiServer) handleRefreshAccount(jc jape.Context) {
	var req AccountRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	if len(req.Account) != 32 {
		jc.Error(errors.New("account must be 32 bytes"), http.StatusBadRequest)
		return
	}
	var who chain.AccountID
	copy(who[:], req.Account)
	as.node.SubmitCall(chain.Authorizer(), chain.RefreshAccountAuthorizationCall{Who: who})
}

func (as *apiServer) handleRefreshPreimage(jc jape.Context) {
	var req PreimageRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	h, ok := parseHash(req.ContentHash)
	if !ok {
		jc.Error(errors.New("content hash must be 32 bytes"), http.StatusBadRequest)
		return
	}
	as.node.SubmitCall(chain.Authorizer(), chain.RefreshPreimageAuthorizationCall{ContentHash: h})
}

// removal of expired authorizations is permissionless, so the calls go in
// unsigned
func (as *apiServer) handleRemoveAccount(jc jape.Context) {
	var req AccountRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	if len(req.Account) != 32 {
		jc.Error(errors.New("account must be 32 bytes"), http.StatusBadRequest)
		return
	}
	var who chain.AccountID
	copy(who[:], req.Account)
	as.node.SubmitCall(chain.Unsigned(), chain.RemoveExpiredAccountAuthorizationCall{Who: who})
}

func (as *apiServer) handleRemovePreimage(jc jape.Context) {
	var req PreimageRequest
	if err := jc.Decode(&req); err != nil {
		return
	}
	h, ok := parseHash(req.ContentHash)
	if !ok {
		jc.Error(errors.New("content hash must be 32 bytes"), http.StatusBadRequest)
		return
	}
	as.node.SubmitCall(chain.Unsigned(), chain.RemoveExpiredPreimageAuthorizationCall{ContentHash: h})
}

// NewAPIHandler returns the node API. The daemon wraps it with basic auth;
// its callers act as the authorizer origin.
func NewAPIHandler(node *chain.Node, log *zap.Logger) http.Handler {
	as := &apiServer{
		node: node,
		log:  log,
	}
	return jape.Mux(map[string]jape.Handler{
		"POST /api/tx":                         as.handleTxSubmit,
		"POST /api/tx/renew":                   as.handleRenew,
		"GET /api/chain/tip":                   as.handleTip,
		"GET /api/blob/:hash":                  as.handleBlob,
		"POST /api/authorize/account":          as.handleAuthorizeAccount,
		"POST /api/authorize/preimage":         as.handleAuthorizePreimage,
		"POST /api/authorize/account/refresh":  as.handleRefreshAccount,
		"POST /api/authorize/preimage/refresh": as.handleRefreshPreimage,
		"POST /api/authorize/account/remove":   as.handleRemoveAccount,
		"POST /api/authorize/preimage/remove":  as.handleRemovePreimage,
	})
}
