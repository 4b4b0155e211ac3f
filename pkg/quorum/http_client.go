package quorum

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"relay-core/pkg/errno"
	"relay-core/pkg/logger"

	"go.uber.org/zap"
)

// rejectionSentinel marks a quorum-side policy rejection inside an otherwise
// well-formed response body. Anything else that goes wrong is treated as the
// service being unavailable, which the caller may retry.
const rejectionSentinel = "QUORUM_ERROR:"

type signRequest struct {
	PublicKey string `json:"publicKey"`
	Digest    string `json:"digest"`
	Purpose   string `json:"purpose,omitempty"`
}

type signResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// HTTPSigner talks to the threshold signing service over its JSON API. The
// service holds the key shares; this client only ships digests and receives
// assembled signatures.
type HTTPSigner struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPSigner builds a signer client against the given base endpoint.
func NewHTTPSigner(endpoint string, timeout time.Duration) *HTTPSigner {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPSigner{client: client, endpoint: strings.TrimRight(endpoint, "/")}
}

// Sign requests a signature over digest from the quorum. Quorum-side
// rejections come back as ErrSigningRejected, transport and service
// failures as ErrQuorumUnavailable. Both are transient in practice (share
// holders drop in and out of the threshold set) and retried upstream.
func (h *HTTPSigner) Sign(ctx context.Context, digest [32]byte, publicKey string, purposeTag string) (SignatureComponents, error) {
	var out signResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(signRequest{
			PublicKey: publicKey,
			Digest:    hex.EncodeToString(digest[:]),
			Purpose:   purposeTag,
		}).
		SetResult(&out).
		SetError(&out).
		Post(h.endpoint + "/v1/sign")
	if err != nil {
		return SignatureComponents{}, errno.ErrQuorumUnavailable.WithDetail(err.Error())
	}

	if out.Error != "" {
		if strings.Contains(out.Error, rejectionSentinel) {
			logger.Warn("quorum rejected signing request",
				zap.String("purpose", purposeTag), zap.String("error", out.Error))
			return SignatureComponents{}, errno.ErrSigningRejected.WithDetail(out.Error)
		}
		return SignatureComponents{}, errno.ErrQuorumUnavailable.WithDetail(out.Error)
	}
	if resp.IsError() {
		return SignatureComponents{}, errno.ErrQuorumUnavailable.WithDetail(resp.Status())
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(out.Signature, "0x"))
	if err != nil {
		return SignatureComponents{}, errno.ErrSignatureFormat.WithDetail(err.Error())
	}
	return ParseSignature(raw)
}

// Health probes the quorum service. Used by readiness checks.
func (h *HTTPSigner) Health(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get(h.endpoint + "/v1/health")
	if err != nil {
		return errno.ErrQuorumUnavailable.WithDetail(err.Error())
	}
	if resp.IsError() {
		return errno.ErrQuorumUnavailable.WithDetail(resp.Status())
	}
	return nil
}
