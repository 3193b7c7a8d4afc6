// Package predict calls the external soil-classification service and maps
// its reply into the pipeline's internal shape.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"soildiag/internal/diagnosis"
	"soildiag/internal/jsonutil"
)

// ServiceError classifies a prediction failure: network, non-success status,
// or a reply missing the minimum required fields. The wizard treats it as
// fatal to the current submission; no retry is performed here.
type ServiceError struct {
	Status int
	Reason string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("predict: %s: %v", e.Reason, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("predict: %s (status %d)", e.Reason, e.Status)
	}
	return "predict: " + e.Reason
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client is a stateless adapter over the prediction service. It retains no
// results between calls.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 25 * time.Second},
	}
}

// wireReply mirrors the service's JSON contract.
type wireReply struct {
	SoilType       string          `json:"type_de_sol_predit"`
	PH             float64         `json:"pH"`
	N              float64         `json:"N"`
	P              float64         `json:"P"`
	K              float64         `json:"K"`
	OptimalCrop    string          `json:"culture_optimale"`
	EstimatedYield float64         `json:"rendement_estime"`
	MatchLevel     json.RawMessage `json:"match_level"`
	Found          *bool           `json:"found"`
}

// Predict posts image + location + area as a multipart request and maps the
// JSON reply. A reply with found=false is a valid no-match outcome, not an
// error. Missing type_de_sol_predit or culture_optimale fails the call.
func (c *Client) Predict(ctx context.Context, image []byte, locationText string, areaSquareMeters float64) (diagnosis.PredictionResult, error) {
	var zero diagnosis.PredictionResult

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if len(image) > 0 {
		part, err := mw.CreateFormFile("image", "soil.jpg")
		if err != nil {
			return zero, &ServiceError{Reason: "build multipart", Err: err}
		}
		if _, err := part.Write(image); err != nil {
			return zero, &ServiceError{Reason: "write image part", Err: err}
		}
	}
	if err := mw.WriteField("city", locationText); err != nil {
		return zero, &ServiceError{Reason: "write city field", Err: err}
	}
	if err := mw.WriteField("area", strconv.FormatFloat(areaSquareMeters, 'f', -1, 64)); err != nil {
		return zero, &ServiceError{Reason: "write area field", Err: err}
	}
	if err := mw.Close(); err != nil {
		return zero, &ServiceError{Reason: "finalize multipart", Err: err}
	}

	url := c.baseURL + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return zero, &ServiceError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, &ServiceError{Reason: "call failed", Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, &ServiceError{Status: resp.StatusCode, Reason: "non-2xx reply: " + strings.TrimSpace(string(data))}
	}

	var wire wireReply
	if err := jsonutil.UnmarshalFlex(data, &wire); err != nil {
		return zero, &ServiceError{Reason: "decode reply", Err: err}
	}
	if strings.TrimSpace(wire.SoilType) == "" || strings.TrimSpace(wire.OptimalCrop) == "" {
		return zero, &ServiceError{Reason: "reply missing required fields"}
	}

	found := true
	if wire.Found != nil {
		found = *wire.Found
	}
	return diagnosis.PredictionResult{
		SoilTypePredicted: wire.SoilType,
		PH:                wire.PH,
		NitrogenPct:       wire.N,
		PhosphorusPct:     wire.P,
		PotassiumPct:      wire.K,
		OptimalCrop:       wire.OptimalCrop,
		EstimatedYield:    wire.EstimatedYield,
		MatchLevel:        matchLevelString(wire.MatchLevel),
		Found:             found,
	}, nil
}

// matchLevelString renders match_level, which the service returns either as
// a string label or a bare number.
func matchLevelString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
