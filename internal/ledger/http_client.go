package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/config"
)

// HTTPClient talks to the ledger RPC gateway over JSON.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewHTTPClient(cfg config.LedgerConfig, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding ledger request: %w", err)
		}
		buf = bytes.NewBuffer(raw)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("building ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("ledger request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return ErrLedgerUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrContractNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("ledger returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding ledger response: %w", err)
		}
	}
	return nil
}

type createContractRequest struct {
	PatientID     uint64 `json:"patientId"`
	DoctorID      uint64 `json:"doctorId"`
	TreatmentType string `json:"treatmentType"`
	Description   string `json:"description"`
}

func (c *HTTPClient) CreateContract(ctx context.Context, patientID, doctorID uint64, treatmentType, description string) error {
	return c.do(ctx, http.MethodPost, "/contracts", createContractRequest{
		PatientID:     patientID,
		DoctorID:      doctorID,
		TreatmentType: treatmentType,
		Description:   description,
	}, nil)
}

type updateContractRequest struct {
	TreatmentType string `json:"treatmentType"`
	Description   string `json:"description"`
}

func (c *HTTPClient) UpdateContract(ctx context.Context, id uint64, treatmentType, description string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/contracts/%d", id), updateContractRequest{
		TreatmentType: treatmentType,
		Description:   description,
	}, nil)
}

type approveContractRequest struct {
	PatientID uint64 `json:"patientId"`
}

func (c *HTTPClient) ApproveContract(ctx context.Context, id, patientID uint64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/contracts/%d/approve", id), approveContractRequest{PatientID: patientID}, nil)
}

func (c *HTTPClient) ContractsByPatient(ctx context.Context, patientID uint64) ([]*Contract, error) {
	var out []*Contract
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/contracts/patient/%d", patientID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ContractsByDoctor(ctx context.Context, doctorID uint64) ([]*Contract, error) {
	var out []*Contract
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/contracts/doctor/%d", doctorID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) AllContracts(ctx context.Context) ([]*Contract, error) {
	var out []*Contract
	if err := c.do(ctx, http.MethodGet, "/contracts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) MarkDeleted(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/contracts/%d/delete", id), nil, nil)
}

func (c *HTTPClient) Restore(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/contracts/%d/restore", id), nil, nil)
}
