// Package auditapi exposes the audit service over HTTP. It translates
// requests into service calls and carries no ledger logic of its own.
package auditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/consensus/bft"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/metrics"
)

// Identity is taken from this header, then from the session cookie.
const (
	UserHeader    = "X-Audit-User"
	SessionCookie = "access_token"
)

const maxRequestSize = 1 << 20

// handle is a route handler that reports failures as errors.
type handle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error

// API routes HTTP requests to an audit service.
type API struct {
	service *audit.Service
	router  *httprouter.Router
	metrics *apiMetrics
	log     log.Logger
}

// New creates the handler for service. Request metrics are registered on reg
// and /metrics serves g; either may be nil.
func New(service *audit.Service, reg prometheus.Registerer, g prometheus.Gatherer) (*API, error) {
	m, err := newAPIMetrics(reg)
	if err != nil {
		return nil, err
	}
	api := &API{
		service: service,
		router:  httprouter.New(),
		metrics: m,
		log:     log.New("module", "api"),
	}
	api.route(http.MethodPost, "/tx", api.submit)
	api.route(http.MethodGet, "/pending", api.pending)
	api.route(http.MethodPost, "/pending/:id/sign", api.sign)
	api.route(http.MethodPost, "/pending/:id/reject", api.reject)
	api.route(http.MethodGet, "/chain", api.chain)
	api.route(http.MethodGet, "/chain/valid", api.valid)
	api.route(http.MethodGet, "/chain/rejected", api.rejected)
	api.route(http.MethodGet, "/validators", api.validators)
	if g != nil {
		api.router.Handler(http.MethodGet, "/metrics", metrics.Handler(g))
	}
	return api, nil
}

type paramsKey struct{}

func (api *API) route(method, path string, h handle) {
	inner := api.metrics.instrument(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps, _ := r.Context().Value(paramsKey{}).(httprouter.Params)
		if err := h(w, r, ps); err != nil {
			api.fail(w, r, err)
		}
	}))
	api.router.Handle(method, path, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		inner.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), paramsKey{}, ps)))
	})
}

// Handler returns the router wrapped with CORS handling for origins.
func (api *API) Handler(origins []string) http.Handler {
	if len(origins) == 0 {
		return api.router
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", UserHeader},
		AllowCredentials: true,
	}).Handler(api.router)
}

// ServeHTTP implements http.Handler without CORS handling.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.router.ServeHTTP(w, r)
}

func (api *API) identity(r *http.Request) (audit.Identity, error) {
	name := r.Header.Get(UserHeader)
	if name == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			name = c.Value
		}
	}
	return api.service.Identify(name)
}

func (api *API) submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	id, err := api.identity(r)
	if err != nil {
		return err
	}
	var in audit.Intake
	if err := decode(w, r, &in); err != nil {
		return err
	}
	view, err := api.service.Submit(id, in)
	if err != nil {
		return err
	}
	api.log.Info("Accepted intake", "user", id.Username, "proposal", view.ID, "stage", view.Stage)
	return writeJSON(w, http.StatusCreated, view)
}

func (api *API) pending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	id, err := api.identity(r)
	if err != nil {
		return err
	}
	if id.Role != audit.RoleAuthority {
		return fmt.Errorf("%w: %s", audit.ErrForbidden, id.Username)
	}
	return writeJSON(w, http.StatusOK, api.service.Pending())
}

func (api *API) sign(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := api.identity(r)
	if err != nil {
		return err
	}
	pid, err := proposalID(ps)
	if err != nil {
		return err
	}
	res, err := api.service.Sign(id, pid)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (api *API) reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := api.identity(r)
	if err != nil {
		return err
	}
	pid, err := proposalID(ps)
	if err != nil {
		return err
	}
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			return err
		}
	}
	res, err := api.service.Reject(id, pid, req.Reason)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

func (api *API) chain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	return writeJSON(w, http.StatusOK, api.service.Chain())
}

type validity struct {
	Valid  bool   `json:"valid"`
	Length int    `json:"length"`
	Head   string `json:"head"`
}

func (api *API) valid(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	chain := api.service.BlockChain()
	length, head := chain.Head()
	return writeJSON(w, http.StatusOK, validity{
		Valid:  chain.IsValid(),
		Length: int(length),
		Head:   head.Hex(),
	})
}

func (api *API) rejected(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	blocks := api.service.Rejected()
	if blocks == nil {
		blocks = []*types.Block{}
	}
	return writeJSON(w, http.StatusOK, blocks)
}

type validatorInfo struct {
	ID          string `json:"id"`
	IsValidator bool   `json:"is_validator"`
	Certificate string `json:"certificate"`
	SignerType  string `json:"signer_type"`
	PublicKey   string `json:"public_key"`
}

func (api *API) validators(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	vals := api.service.Validators()
	out := make([]validatorInfo, len(vals))
	for i, v := range vals {
		out[i] = validatorInfo{
			ID:          v.ID,
			IsValidator: v.IsValidator,
			Certificate: v.Certificate,
			SignerType:  v.PublicKey.Type,
			PublicKey:   v.PublicHex(),
		}
	}
	return writeJSON(w, http.StatusOK, out)
}

var errBadRequest = errors.New("bad request")

func proposalID(ps httprouter.Params) (uint64, error) {
	id, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid proposal id %q", errBadRequest, ps.ByName("id"))
	}
	return id, nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusCode maps service errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, audit.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, audit.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, bft.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bft.ErrDuplicateSignature), errors.Is(err, bft.ErrStaleProposal):
		return http.StatusConflict
	case errors.Is(err, bft.ErrUnknownValidator), errors.Is(err, audit.ErrInvalidIntake), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (api *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		api.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		api.log.Debug("Request refused", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeJSON sends v with the given status. Once the header is written a
// failure can only be logged.
func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write response", "err", err)
	}
	return nil
}
