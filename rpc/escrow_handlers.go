package rpc

import (
	"errors"
	"math/big"
	"net/http"
	"strings"

	"propchain/core/types"
	"propchain/native/escrow"
)

type escrowCreateParams struct {
	PropertyID uint64 `json:"propertyId"`
	Amount     string `json:"amount"`
	Caller     string `json:"caller"`
}

type escrowActorParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type escrowIDParams struct {
	ID uint64 `json:"id"`
}

type escrowCreateResult struct {
	ID uint64 `json:"id"`
}

type escrowJSON struct {
	ID         uint64 `json:"id"`
	PropertyID uint64 `json:"propertyId"`
	Buyer      string `json:"buyer"`
	Seller     string `json:"seller"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
}

type listEventsParams struct {
	Prefix string `json:"prefix,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	if amount.Sign() < 0 {
		return nil, errors.New("amount must be non-negative")
	}
	return amount, nil
}

func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeRegistryNotFound, "escrow_not_found", err.Error())
	case errors.Is(err, escrow.ErrAlreadyTerminal):
		writeError(w, http.StatusConflict, id, codeRegistryConflict, "escrow_already_terminal", err.Error())
	case errors.Is(err, escrow.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeRegistryForbidden, "unauthorized", err.Error())
	default:
		// Release propagates the embedded transfer's failure verbatim, so
		// the registry taxonomy applies here too.
		writeRegistryError(w, id, err)
	}
}

func (s *Server) handleCreateEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowCreateParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := s.node.CreateEscrow(params.PropertyID, amount, caller)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowCreateResult{ID: id})
}

func (s *Server) handleReleaseEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowActorParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.ReleaseEscrow(r.Context(), params.ID, caller); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRefundEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowActorParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RefundEscrow(params.ID, caller); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	esc, ok, err := s.node.GetEscrow(params.ID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, escrowJSON{
		ID:         esc.ID,
		PropertyID: esc.PropertyID,
		Buyer:      formatAddress(esc.Buyer),
		Seller:     formatAddress(esc.Seller),
		Amount:     esc.Amount.String(),
		Status:     esc.Status.String(),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params := listEventsParams{}
	if len(req.Params) > 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", "at most one parameter object expected")
		return
	}
	if len(req.Params) == 1 {
		if err := singleParam(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	limit := 0
	if params.Limit != nil {
		if *params.Limit < 0 {
			writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", "limit must be non-negative")
			return
		}
		limit = *params.Limit
	}
	evts := s.node.Events(strings.TrimSpace(params.Prefix), limit)
	if evts == nil {
		evts = []types.Event{}
	}
	writeResult(w, req.ID, evts)
}
