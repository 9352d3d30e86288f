package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/okian/betti/internal/adapters/codec"
	"github.com/okian/betti/internal/domain/betti"
	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/internal/domain/types"
)

const defaultMaxBodyBytes = 32 << 20

// CurvesHandler serves the curve submission, lookup and compute routes.
type CurvesHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewCurvesHandler creates a new curves handler.
func NewCurvesHandler(deps Dependencies) *CurvesHandler {
	return &CurvesHandler{deps: deps, maxBodyBytes: defaultMaxBodyBytes}
}

// HandleSubmit handles POST /curves. New work answers 202; work identical to
// an earlier request answers 200 with that request's id.
func (h *CurvesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		writeServiceError(w, "submit", err)
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, "submit", err)
		return
	}

	if !duplicate {
		writeJSON(w, http.StatusAccepted, types.SubmitResponse{ID: id, Status: string(model.StatusPending)})
		return
	}
	status := model.StatusPending
	if res, err := h.deps.Result(r.Context(), id); err == nil {
		status = res.Status
	}
	writeJSON(w, http.StatusOK, types.SubmitResponse{ID: id, Status: string(status), Duplicate: true})
}

// HandleGet handles GET /curves/{id}.
func (h *CurvesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/curves/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	res, err := h.deps.Result(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get", err)
		return
	}
	h.writeResult(w, r, http.StatusOK, res)
}

// HandleCompute handles POST /curves/compute: the curves come back in the
// response and nothing is stored.
func (h *CurvesHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		writeServiceError(w, "compute", err)
		return
	}
	res, err := h.deps.Compute(r.Context(), req)
	if err != nil {
		writeServiceError(w, "compute", err)
		return
	}
	h.writeResult(w, r, http.StatusOK, res)
}

// writeResult renders res as json, or as a csv/tsv table when the query asks
// for one via ?format= and the result is complete.
func (h *CurvesHandler) writeResult(w http.ResponseWriter, r *http.Request, status int, res model.Result) { //nolint:gocritic // hugeParam: result is read-only
	name := r.URL.Query().Get("format")
	if name == "" || strings.EqualFold(name, string(codec.FormatJSON)) || res.Status != model.StatusDone {
		writeJSON(w, status, toCurveResponse(res))
		return
	}

	format, err := codec.ParseFormat(name)
	if err != nil {
		writeServiceError(w, "render", err)
		return
	}
	g, err := grid.New(res.Grid)
	if err != nil {
		writeServiceError(w, "render", err)
		return
	}

	var buf bytes.Buffer
	if err := codec.WriteCurves(&buf, g, betti.Curves(res.Curves), format); err != nil {
		writeServiceError(w, "render", err)
		return
	}
	contentType := "text/csv; charset=utf-8"
	if format == codec.FormatTSV {
		contentType = "text/tab-separated-values; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// decode reads either a json CurveRequest or, for text/plain bodies, a
// gudhi-layout diagram with grid and dimension settings in the query.
func (h *CurvesHandler) decode(w http.ResponseWriter, r *http.Request) (model.Request, error) {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer func() { _ = body.Close() }()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		return decodeText(body, r.URL.Query())
	}

	var payload types.CurveRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.Request{}, WrapKind("decode", ErrBadRequest, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
		}
		return model.Request{}, WrapKind("decode", ErrBadRequest, err)
	}
	return ToModelRequest(payload)
}

// ToModelRequest validates a wire request and converts it.
func ToModelRequest(payload types.CurveRequest) (model.Request, error) { //nolint:gocritic // hugeParam: request is read-only
	if err := validateStruct(payload); err != nil {
		return model.Request{}, err
	}
	d, err := codec.ReadDiagram(bytes.NewReader(payload.Diagram), codec.FormatJSON)
	if err != nil {
		return model.Request{}, fmt.Errorf("diagram: %w", err)
	}
	return model.Request{
		Diagram: d,
		Grid: model.GridSpec{
			Values: payload.Grid,
			Start:  payload.Start,
			Stop:   payload.Stop,
			Points: payload.Points,
		},
		Dimensions: payload.Dimensions,
	}, nil
}

func decodeText(body io.Reader, q url.Values) (model.Request, error) {
	d, err := codec.ReadDiagram(body, codec.FormatText)
	if err != nil {
		return model.Request{}, fmt.Errorf("diagram: %w", err)
	}
	req := model.Request{Diagram: d}

	if v := q.Get("start"); v != "" {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return model.Request{}, WrapKind("query start", ErrBadRequest, err)
		}
		req.Grid.Start = &f
	}
	if v := q.Get("stop"); v != "" {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return model.Request{}, WrapKind("query stop", ErrBadRequest, err)
		}
		req.Grid.Stop = &f
	}
	if v := q.Get("points"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return model.Request{}, WrapKind("query points", ErrBadRequest, err)
		}
		req.Grid.Points = n
	}
	if v := q.Get("dims"); v != "" {
		dims, err := cast.ToIntSliceE(splitList(v))
		if err != nil {
			return model.Request{}, WrapKind("query dims", ErrBadRequest, err)
		}
		req.Dimensions = dims
	}

	wire := types.CurveRequest{
		Diagram:    json.RawMessage("{}"),
		Start:      req.Grid.Start,
		Stop:       req.Grid.Stop,
		Points:     req.Grid.Points,
		Dimensions: req.Dimensions,
	}
	if err := validateStruct(wire); err != nil {
		return model.Request{}, err
	}
	return req, nil
}

func toCurveResponse(res model.Result) types.CurveResponse { //nolint:gocritic // hugeParam: result is read-only
	return types.CurveResponse{
		ID:        res.ID,
		Status:    string(res.Status),
		Grid:      res.Grid,
		Curves:    res.Curves,
		Intervals: res.Intervals,
		Error:     res.Error,
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
