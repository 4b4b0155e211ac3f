package handler

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"relay-core/internal/handler/request"
	"relay-core/internal/handler/response"
	"relay-core/internal/service"
	"relay-core/pkg/authz"
	"relay-core/pkg/errno"
	"relay-core/pkg/extract"
	"relay-core/pkg/pipeline"
	"relay-core/pkg/txbuild"
)

// RelayHandler exposes the relay flows over HTTP.
type RelayHandler struct {
	svc *service.RelayService
}

func NewRelayHandler(svc *service.RelayService) *RelayHandler {
	return &RelayHandler{svc: svc}
}

// ExecuteRelay runs one sponsored invocation
// @Summary Execute a sponsored invocation
// @Description Verifies the signed authorization, then builds, signs, broadcasts and confirms the transaction on behalf of the signer
// @Tags Relay
// @Accept json
// @Produce json
// @Param request body request.ExecuteRelayRequest true "Relay Request"
// @Success 200 {object} response.Response
// @Router /api/v1/relay/execute [post]
func (h *RelayHandler) ExecuteRelay(c *gin.Context) {
	var req request.ExecuteRelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	pipelineReq, err := toPipelineRequest(&req.Authorization, &req.Schema, &req.Call, req.ExtractMint, req.Emitter)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.ExecuteRelay(c.Request.Context(), pipelineReq)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, relayResult(result))
}

// ExecuteSequence runs an ordered multi-transaction invocation
// @Summary Execute a transaction sequence
// @Description Runs the steps strictly in order on consecutive nonces, fail-fast, and reports each step's final status
// @Tags Relay
// @Accept json
// @Produce json
// @Param request body request.ExecuteSequenceRequest true "Sequence Request"
// @Success 200 {object} response.Response
// @Router /api/v1/relay/sequence [post]
func (h *RelayHandler) ExecuteSequence(c *gin.Context) {
	var req request.ExecuteSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	auth, err := toAuthorization(&req.Authorization)
	if err != nil {
		response.Error(c, err)
		return
	}
	schema, err := toSchema(&req.Schema)
	if err != nil {
		response.Error(c, err)
		return
	}

	steps := make([]pipeline.SequenceStep, 0, len(req.Steps))
	for _, s := range req.Steps {
		target, data, value, err := toCall(&s.Call)
		if err != nil {
			response.Error(c, err)
			return
		}
		step := pipeline.SequenceStep{
			Template: txbuild.Template{
				Name:    s.Name,
				To:      target,
				Data:    data,
				Value:   value,
				Gas:     txbuild.GasPolicy{Fixed: s.Call.GasLimit},
				Purpose: s.Name,
			},
		}
		if s.ExtractMint {
			spec := extract.TransferMint(common.HexToAddress(s.Emitter))
			step.LogSpec = &spec
		}
		steps = append(steps, step)
	}

	results, runErr := h.svc.ExecuteSequence(c.Request.Context(), &pipeline.SequenceRequest{
		Authorization:  auth,
		ExpectedSigner: auth.Signer,
		Schema:         schema,
		Steps:          steps,
	})
	// The step report goes back even on failure; the envelope code tells
	// the caller which step's error stopped the sequence.
	report := sequenceReport(results)
	if runErr != nil {
		code, msg := errno.Decode(runErr)
		c.JSON(http.StatusOK, response.Response{Code: code, Message: msg, Data: report})
		return
	}
	response.Success(c, report)
}

// ExecuteMirror applies or revokes an access fact on both chains
// @Summary Mirror an access-control write across chains
// @Description Writes primary-first; a secondary failure is recorded for reconciliation and does not fail the call
// @Tags Relay
// @Accept json
// @Produce json
// @Param request body request.ExecuteMirrorRequest true "Mirror Request"
// @Success 200 {object} response.Response
// @Router /api/v1/relay/mirror [post]
func (h *RelayHandler) ExecuteMirror(c *gin.Context) {
	var req request.ExecuteMirrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	primaryReq, err := toPipelineRequest(&req.Authorization, &req.Schema, &req.PrimaryCall, false, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	secondaryReq, err := toPipelineRequest(&req.Authorization, &req.Schema, &req.SecondaryCall, false, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	flow := service.FlowMirrorGrant
	if req.Operation == "revoke" {
		flow = service.FlowMirrorRevoke
	}
	result, err := h.svc.ExecuteMirror(c.Request.Context(), flow, primaryReq, secondaryReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	data := gin.H{"primary": relayResult(result.Primary)}
	if result.Secondary != nil {
		data["secondary"] = relayResult(result.Secondary)
	} else {
		data["secondary_status"] = "pending_reconciliation"
	}
	response.Success(c, data)
}

func toPipelineRequest(a *request.Authorization, s *request.AuthSchema, call *request.Call, extractMint bool, emitter string) (*pipeline.Request, error) {
	auth, err := toAuthorization(a)
	if err != nil {
		return nil, err
	}
	schema, err := toSchema(s)
	if err != nil {
		return nil, err
	}
	target, data, value, err := toCall(call)
	if err != nil {
		return nil, err
	}

	req := &pipeline.Request{
		Authorization: auth,
		// The edge receives already-collected authorizations and checks the
		// signature against the claimed signer, binding the declared fields
		// and nonce to that identity. Which signers may invoke which flows
		// is the upstream gateway's policy, not this service's.
		ExpectedSigner: auth.Signer,
		Schema:         schema,
		Target:         target,
		Calldata:       data,
		Value:          value,
		Gas:            txbuild.GasPolicy{Fixed: call.GasLimit},
		PurposeTag:     schema.Action,
	}
	if extractMint {
		spec := extract.TransferMint(common.HexToAddress(emitter))
		req.LogSpec = &spec
	}
	return req, nil
}

func toAuthorization(a *request.Authorization) (*authz.Request, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(a.Signature, "0x"))
	if err != nil {
		return nil, errno.ErrBind.WithDetail("signature is not valid hex")
	}
	return &authz.Request{
		Signer:         a.Signer,
		DeclaredFields: a.Fields,
		Nonce:          a.Nonce,
		Timestamp:      a.Timestamp,
		Signature:      sig,
	}, nil
}

func toSchema(s *request.AuthSchema) (authz.Schema, error) {
	switch s.Scheme {
	case "freeform":
		return authz.Schema{
			Scheme:       authz.SchemeFreeform,
			Scope:        s.Scope,
			Action:       s.Action,
			SubjectField: s.SubjectField,
			DigestField:  s.DigestField,
		}, nil
	default:
		return authz.Schema{}, errno.ErrBind.WithDetail("unsupported authorization scheme " + s.Scheme)
	}
}

func toCall(call *request.Call) (common.Address, []byte, *big.Int, error) {
	if !common.IsHexAddress(call.Target) {
		return common.Address{}, nil, nil, errno.ErrBind.WithDetail("target is not a valid address")
	}
	data, err := hex.DecodeString(strings.TrimPrefix(call.Calldata, "0x"))
	if err != nil {
		return common.Address{}, nil, nil, errno.ErrBind.WithDetail("calldata is not valid hex")
	}
	// Value arrives as an integer wei amount.
	if !call.Value.IsInteger() {
		return common.Address{}, nil, nil, errno.ErrBuildInvalidNumericField.WithDetail("value must be an integer wei amount")
	}
	return common.HexToAddress(call.Target), data, call.Value.BigInt(), nil
}

func relayResult(r *pipeline.Result) gin.H {
	out := gin.H{
		"tx_hash":      r.TxHash.Hex(),
		"block_number": r.BlockNumber,
		"gas_used":     r.GasUsed,
	}
	if r.ID != nil {
		out["id"] = r.ID.String()
	}
	if r.Derived != (common.Address{}) {
		out["derived"] = r.Derived.Hex()
	}
	return out
}

func sequenceReport(results []pipeline.StepResult) []gin.H {
	report := make([]gin.H, 0, len(results))
	for _, r := range results {
		item := gin.H{
			"name":   r.Name,
			"status": string(r.Status),
		}
		if (r.TxHash != common.Hash{}) {
			item["tx_hash"] = r.TxHash.Hex()
		}
		if r.ID != nil {
			item["id"] = r.ID.String()
		}
		if r.Err != nil {
			code, msg := errno.Decode(r.Err)
			item["code"] = code
			item["error"] = msg
		}
		report = append(report, item)
	}
	return report
}
