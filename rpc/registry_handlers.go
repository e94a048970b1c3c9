package rpc

import (
	"errors"
	"net/http"

	"propchain/native/registry"
)

const (
	codeRegistryInvalidParams = -32021
	codeRegistryNotFound      = -32022
	codeRegistryForbidden     = -32023
	codeRegistryConflict      = -32024
	codeRegistryNotCompliant  = -32026
	codeRegistryOracleFailure = -32027
	codeRegistryInternal      = -32025
)

type metadataJSON struct {
	Location         string `json:"location"`
	Size             uint64 `json:"size"`
	LegalDescription string `json:"legalDescription"`
	Valuation        uint64 `json:"valuation"`
	DocumentsURL     string `json:"documentsUrl"`
}

func (m metadataJSON) toMetadata() registry.Metadata {
	return registry.Metadata{
		Location:         m.Location,
		Size:             m.Size,
		LegalDescription: m.LegalDescription,
		Valuation:        m.Valuation,
		DocumentsURL:     m.DocumentsURL,
	}
}

func metadataToJSON(meta registry.Metadata) metadataJSON {
	return metadataJSON{
		Location:         meta.Location,
		Size:             meta.Size,
		LegalDescription: meta.LegalDescription,
		Valuation:        meta.Valuation,
		DocumentsURL:     meta.DocumentsURL,
	}
}

type registerParams struct {
	Caller   string       `json:"caller"`
	Metadata metadataJSON `json:"metadata"`
}

type transferParams struct {
	ID     uint64 `json:"id"`
	To     string `json:"to"`
	Caller string `json:"caller"`
}

type updateMetadataParams struct {
	ID       uint64       `json:"id"`
	Metadata metadataJSON `json:"metadata"`
	Caller   string       `json:"caller"`
}

type approveParams struct {
	ID       uint64 `json:"id"`
	Delegate string `json:"delegate,omitempty"`
	Caller   string `json:"caller"`
}

type propertyIDParams struct {
	ID uint64 `json:"id"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type setComplianceParams struct {
	URL    string `json:"url"`
	Caller string `json:"caller"`
}

type registerResult struct {
	ID uint64 `json:"id"`
}

type propertyJSON struct {
	ID           uint64       `json:"id"`
	Owner        string       `json:"owner"`
	Metadata     metadataJSON `json:"metadata"`
	RegisteredAt int64        `json:"registeredAt"`
}

type approvedResult struct {
	Delegate *string `json:"delegate"`
}

type complianceRegistryResult struct {
	URL *string `json:"url"`
}

// writeRegistryError maps the domain error taxonomy onto JSON-RPC error codes
// so callers can distinguish every failure kind the operation surface defines.
func writeRegistryError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, registry.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, id, codeRegistryNotFound, "property_not_found", err.Error())
	case errors.Is(err, registry.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeRegistryForbidden, "unauthorized", err.Error())
	case errors.Is(err, registry.ErrInvalidMetadata):
		writeError(w, http.StatusBadRequest, id, codeRegistryInvalidParams, "invalid_metadata", err.Error())
	case errors.Is(err, registry.ErrNotCompliant):
		writeError(w, http.StatusForbidden, id, codeRegistryNotCompliant, "not_compliant", err.Error())
	case errors.Is(err, registry.ErrComplianceCheckFailed):
		writeError(w, http.StatusBadGateway, id, codeRegistryOracleFailure, "compliance_check_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeRegistryInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleRegisterProperty(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := s.node.RegisterProperty(caller, params.Metadata.toMetadata())
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registerResult{ID: id})
}

func (s *Server) handleTransferProperty(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params transferParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.TransferProperty(r.Context(), params.ID, to, caller); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params updateMetadataParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.UpdateMetadata(params.ID, params.Metadata.toMetadata(), caller); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleApprove(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params approveParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	var delegate *[20]byte
	if params.Delegate != "" {
		addr, err := parseBech32Address(params.Delegate)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
			return
		}
		delegate = &addr
	}
	if err := s.node.Approve(params.ID, delegate, caller); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetApproved(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params propertyIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	delegate, ok, err := s.node.Approved(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	result := approvedResult{}
	if ok {
		encoded := formatAddress(delegate)
		result.Delegate = &encoded
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params propertyIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	property, ok, err := s.node.GetProperty(params.ID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, propertyJSON{
		ID:           property.ID,
		Owner:        formatAddress(property.Owner),
		Metadata:     metadataToJSON(property.Metadata),
		RegisteredAt: property.RegisteredAt,
	})
}

func (s *Server) handleGetOwnerProperties(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ownerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.node.OwnerProperties(owner)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ids)
}

func (s *Server) handlePropertyCount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	count, err := s.node.PropertyCount()
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleSetComplianceRegistry(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setComplianceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRegistryInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetComplianceRegistry(params.URL, caller); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetComplianceRegistry(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	url, ok, err := s.node.ComplianceRegistry()
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	result := complianceRegistryResult{}
	if ok {
		result.URL = &url
	}
	writeResult(w, req.ID, result)
}
