package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/internal/ingest"
	"github.com/framekit/framekit/internal/observability"
	"github.com/framekit/framekit/internal/query"
	"github.com/framekit/framekit/pkg/types"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds request bodies, inline CSV included.
const maxBodyBytes = 32 << 20

// CreateFrameRequest ingests a frame. Exactly one of CSV, Object, Objects or
// Prefix names the source.
type CreateFrameRequest struct {
	CSV       string   `json:"csv,omitempty"`
	Object    string   `json:"object,omitempty"`
	Objects   []string `json:"objects,omitempty"`
	Prefix    string   `json:"prefix,omitempty"`
	Kinds     string   `json:"kinds"`
	Delimiter string   `json:"delimiter,omitempty"`
}

// AddColumnRequest appends a column parsed from raw text values.
type AddColumnRequest struct {
	Label  string   `json:"label"`
	Kind   string   `json:"kind"`
	Values []string `json:"values"`
}

// MergeRequest appends the rows of another registered frame.
type MergeRequest struct {
	Other string `json:"other"`
}

// RestrictRequest keeps the named columns.
type RestrictRequest struct {
	Labels []string `json:"labels"`
}

// FilterRequest keeps rows matching a predicate expression such as
// "PPG >= 25 AND Games < 1400".
type FilterRequest struct {
	Where string `json:"where"`
}

// AggregateRequest computes column_op, average, add_rows, count, sum, min,
// max or avg over the named columns.
type AggregateRequest struct {
	Op     string   `json:"op"`
	Labels []string `json:"labels"`
}

// FrameSummary describes a registered frame without its rows.
type FrameSummary struct {
	ID          string       `json:"id"`
	Fingerprint string       `json:"fingerprint"`
	Labels      []string     `json:"labels"`
	Kinds       []types.Kind `json:"kinds"`
	NumRows     int          `json:"num_rows"`
	Created     time.Time    `json:"created"`
}

// FrameResponse is a frame with its rows.
type FrameResponse struct {
	FrameSummary
	Rows [][]interface{} `json:"rows"`
}

// AggregateResponse holds a numeric vector (column_op, add_rows) or a scalar.
// Vector ops always carry values, empty for a frame with no rows; scalar ops
// leave it null.
type AggregateResponse struct {
	Op     string   `json:"op"`
	Labels []string `json:"labels"`
	Values []Number `json:"values"`
	Value  *Number  `json:"value,omitempty"`
}

// ColumnUsage reports how often a column was filtered or aggregated.
type ColumnUsage struct {
	Column    string         `json:"column"`
	Frequency int64          `json:"frequency"`
	LastSeen  time.Time      `json:"last_seen"`
	Ops       map[string]int `json:"ops"`
}

// Number is a float64 that encodes NaN and infinities as JSON strings.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(f)
}

// FrameHandler serves the /v1/frames endpoints.
type FrameHandler struct {
	registry  *Registry
	loader    *ingest.Loader
	stats     *observability.OpStats
	delimiter rune
}

// NewFrameHandler creates a frame handler. loader may be nil, in which case
// only inline CSV can be ingested.
func NewFrameHandler(registry *Registry, loader *ingest.Loader, stats *observability.OpStats, delimiter rune) *FrameHandler {
	if stats == nil {
		stats = observability.NewOpStats(time.Hour)
	}
	return &FrameHandler{
		registry:  registry,
		loader:    loader,
		stats:     stats,
		delimiter: delimiter,
	}
}

// Create handles POST /v1/frames.
func (h *FrameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFrameRequest
	if !decode(w, r, &req) {
		return
	}

	sources := 0
	for _, set := range []bool{req.CSV != "", req.Object != "", len(req.Objects) > 0, req.Prefix != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		badRequest(w, r, "exactly one of csv, object, objects or prefix is required")
		return
	}
	if req.CSV == "" && h.loader == nil {
		badRequest(w, r, "object storage is not configured")
		return
	}

	delimiter := h.delimiter
	if req.Delimiter != "" {
		if utf8.RuneCountInString(req.Delimiter) != 1 {
			badRequest(w, r, fmt.Sprintf("delimiter must be a single character, got %q", req.Delimiter))
			return
		}
		delimiter, _ = utf8.DecodeRuneInString(req.Delimiter)
	}

	start := time.Now()
	f, err := h.ingest(r, req, delimiter)
	h.stats.Observe("ingest", start, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.register(w, r, f)
}

func (h *FrameHandler) ingest(r *http.Request, req CreateFrameRequest, delimiter rune) (*frame.Frame, error) {
	kinds, err := types.ParseKinds(req.Kinds)
	if err != nil {
		return nil, ferrors.NewSchemaError(ferrors.CodeUnknownType, err.Error())
	}

	ctx := r.Context()
	switch {
	case req.CSV != "":
		return ingest.ReadCSV(strings.NewReader(req.CSV), delimiter, kinds)
	case req.Object != "":
		return h.loader.Load(ctx, req.Object, kinds)
	case len(req.Objects) > 0:
		return h.loader.LoadAll(ctx, req.Objects, kinds)
	default:
		return h.loader.LoadPrefix(ctx, req.Prefix, kinds)
	}
}

// List handles GET /v1/frames.
func (h *FrameHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.List()
	out := make([]FrameSummary, len(entries))
	for i, e := range entries {
		out[i] = summarize(e)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"frames": out})
}

// Get handles GET /v1/frames/{id}.
func (h *FrameHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rows := make([][]interface{}, e.Frame.NumRows())
	for i := range rows {
		row := e.Frame.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = jsonCell(v)
		}
		rows[i] = cells
	}

	writeJSON(w, http.StatusOK, FrameResponse{FrameSummary: summarize(e), Rows: rows})
}

// Delete handles DELETE /v1/frames/{id}.
func (h *FrameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddColumn handles POST /v1/frames/{id}/columns.
func (h *FrameHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	var req AddColumnRequest
	e, ok := h.source(w, r, &req)
	if !ok {
		return
	}

	start := time.Now()
	out, err := addColumn(e.Frame, req)
	h.stats.Observe("add_column", start, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.register(w, r, out)
}

func addColumn(f *frame.Frame, req AddColumnRequest) (*frame.Frame, error) {
	kind, err := types.ParseKind(req.Kind)
	if err != nil {
		return nil, ferrors.NewSchemaError(ferrors.CodeUnknownType, err.Error())
	}

	values := make([]types.Value, len(req.Values))
	for i, raw := range req.Values {
		v, err := ingest.ParseField(raw, kind)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		values[i] = v
	}
	return frame.AddColumn(f, req.Label, kind, values)
}

// Merge handles POST /v1/frames/{id}/merge.
func (h *FrameHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	e, ok := h.source(w, r, &req)
	if !ok {
		return
	}
	other, err := h.registry.Get(req.Other)
	if err != nil {
		h.fail(w, r, fmt.Errorf("other %q: %w", req.Other, err))
		return
	}

	start := time.Now()
	out, err := frame.Merge(e.Frame, other.Frame)
	h.stats.Observe("merge", start, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.register(w, r, out)
}

// Restrict handles POST /v1/frames/{id}/restrict.
func (h *FrameHandler) Restrict(w http.ResponseWriter, r *http.Request) {
	var req RestrictRequest
	e, ok := h.source(w, r, &req)
	if !ok {
		return
	}

	start := time.Now()
	out, err := frame.RestrictColumns(e.Frame, req.Labels)
	h.stats.Observe("restrict", start, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.register(w, r, out)
}

// Filter handles POST /v1/frames/{id}/filter.
func (h *FrameHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	e, ok := h.source(w, r, &req)
	if !ok {
		return
	}

	start := time.Now()
	preds, err := query.Parse(req.Where)
	var out *frame.Frame
	if err == nil {
		out, err = query.ApplyAll(e.Frame, preds)
	}
	h.stats.Observe("filter", start, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, p := range preds {
		h.stats.RecordColumn(p.Column, "filter")
	}
	h.register(w, r, out)
}

// Aggregate handles POST /v1/frames/{id}/aggregate.
func (h *FrameHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	e, ok := h.source(w, r, &req)
	if !ok {
		return
	}

	op := strings.ToLower(strings.TrimSpace(req.Op))
	want := 1
	switch op {
	case "column_op":
		want = -1
	case "add_rows":
		want = 2
	}
	if (want < 0 && len(req.Labels) == 0) || (want > 0 && len(req.Labels) != want) {
		badRequest(w, r, fmt.Sprintf("%s needs %s", op, labelCount(want)))
		return
	}

	start := time.Now()
	resp, err := aggregate(e.Frame, op, req.Labels)
	h.stats.Observe(op, start, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, label := range req.Labels {
		h.stats.RecordColumn(label, op)
	}
	writeJSON(w, http.StatusOK, resp)
}

func aggregate(f *frame.Frame, op string, labels []string) (AggregateResponse, error) {
	resp := AggregateResponse{Op: op, Labels: labels}

	var (
		values []float64
		scalar float64
		err    error
	)
	switch op {
	case "column_op":
		values, err = frame.ColumnOp(f, labels)
	case "add_rows":
		values, err = frame.AddRows(f, labels[0], labels[1])
	case "average":
		scalar, err = frame.Average(f, labels[0])
	default:
		var typ frame.AggregateType
		if typ, err = frame.ParseAggregateType(op); err == nil {
			scalar, err = frame.Aggregate(f, labels[0], typ)
		}
	}
	if err != nil {
		return resp, err
	}

	if op == "column_op" || op == "add_rows" {
		resp.Values = make([]Number, len(values))
		for i, v := range values {
			resp.Values[i] = Number(v)
		}
		return resp, nil
	}
	n := Number(scalar)
	resp.Value = &n
	return resp, nil
}

func labelCount(n int) string {
	switch n {
	case -1:
		return "at least one label"
	case 1:
		return "exactly one label"
	default:
		return fmt.Sprintf("exactly %d labels", n)
	}
}

// TopColumns handles GET /v1/stats/columns?n=10.
func (h *FrameHandler) TopColumns(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			badRequest(w, r, fmt.Sprintf("invalid n: %q", v))
			return
		}
		n = parsed
	}

	top := h.stats.GetTopColumns(n)
	out := make([]ColumnUsage, len(top))
	for i, c := range top {
		out[i] = ColumnUsage{Column: c.Column, Frequency: c.Frequency, LastSeen: c.LastSeen, Ops: c.Ops}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"columns": out})
}

// source decodes the body into req and resolves the {id} frame.
func (h *FrameHandler) source(w http.ResponseWriter, r *http.Request, req interface{}) (Entry, bool) {
	e, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return Entry{}, false
	}
	if !decode(w, r, req) {
		return Entry{}, false
	}
	return e, true
}

func (h *FrameHandler) register(w http.ResponseWriter, r *http.Request, f *frame.Frame) {
	e, err := h.registry.Put(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	log.Printf("http: registered frame %s (%d rows, %d columns)", e.ID, f.NumRows(), f.NumColumns())
	writeJSON(w, http.StatusCreated, summarize(e))
}

func (h *FrameHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: GetRequestID(r.Context()),
	}
	var fe *ferrors.FrameError
	if errors.As(err, &fe) {
		resp.Code = fe.Code
		resp.Details = fe.Details
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[WARN] http: %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, resp)
}

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrFrameNotFound),
		errors.Is(err, ferrors.ErrColumnNotFound),
		errors.Is(err, ferrors.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRegistryFull):
		return http.StatusInsufficientStorage
	}

	var fe *ferrors.FrameError
	if !errors.As(err, &fe) {
		return http.StatusInternalServerError
	}
	switch {
	case fe.Category == ferrors.ErrCategoryInternal:
		return http.StatusInternalServerError
	case fe.Retryable:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		badRequest(w, r, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, http.StatusBadRequest, ErrorResponse{Error: msg, RequestID: GetRequestID(r.Context())})
}

func summarize(e Entry) FrameSummary {
	return FrameSummary{
		ID:          e.ID,
		Fingerprint: e.Frame.Fingerprint(),
		Labels:      e.Frame.Labels(),
		Kinds:       e.Frame.Kinds(),
		NumRows:     e.Frame.NumRows(),
		Created:     e.Created,
	}
}

func jsonCell(v types.Value) interface{} {
	if x, ok := v.(types.Float); ok {
		return Number(x)
	}
	return types.JSONValue(v)
}
