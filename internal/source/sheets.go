package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kpiboard/internal/config"
	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/extract"
	"kpiboard/pkg/contracts/domain"
)

// SheetsSettings identifies the spreadsheet range to read and the credential to read it with
type SheetsSettings struct {
	ServiceAccountKey string
	SpreadsheetID     string
	Range             string
}

// serviceAccountKey holds the fields a usable service credential must carry
type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseServiceAccountKey checks that payload is a service credential JSON document
func ParseServiceAccountKey(payload string) error {
	var key serviceAccountKey
	if err := json.Unmarshal([]byte(payload), &key); err != nil {
		return apperrors.InvalidServiceKey(err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return apperrors.InvalidServiceKey(fmt.Errorf("client_email and private_key are required"))
	}
	return nil
}

// SheetsSource reads a range through the Google Sheets API
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string
}

// NewSheetsSource validates the settings and builds a read-only Sheets client.
// Absent settings fail with CONFIG_MISSING, an unparseable key with INVALID_SERVICE_KEY.
func NewSheetsSource(ctx context.Context, s SheetsSettings, opts ...option.ClientOption) (*SheetsSource, error) {
	var missing []string
	if strings.TrimSpace(s.ServiceAccountKey) == "" {
		missing = append(missing, "SERVICE_ACCOUNT_KEY")
	}
	if strings.TrimSpace(s.SpreadsheetID) == "" {
		missing = append(missing, "SPREADSHEET_ID")
	}
	if len(missing) > 0 {
		return nil, apperrors.ConfigMissing(missing...)
	}

	if err := ParseServiceAccountKey(s.ServiceAccountKey); err != nil {
		return nil, err
	}

	opts = append([]option.ClientOption{
		option.WithCredentialsJSON([]byte(s.ServiceAccountKey)),
		option.WithScopes(config.SheetsReadOnlyScope),
	}, opts...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewSheetsSourceWithService(svc, s.SpreadsheetID, s.Range), nil
}

// NewSheetsSourceWithService wraps an already configured Sheets client
func NewSheetsSourceWithService(svc *sheets.Service, spreadsheetID, rng string) *SheetsSource {
	if rng == "" {
		rng = config.DefaultSheetRange
	}
	return &SheetsSource{svc: svc, spreadsheetID: spreadsheetID, rng: rng}
}

// Name implements GridSource
func (s *SheetsSource) Name() string { return "sheets" }

// FetchValues returns the range's cells exactly as the API delivered them.
// An empty range yields an empty, non-nil matrix.
func (s *SheetsSource) FetchValues(ctx context.Context) ([][]interface{}, error) {
	call := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx)
	call.Header().Set("Cache-Control", "no-cache, no-store")

	resp, err := call.Do()
	if err != nil {
		return nil, apperrors.Upstream(s.Name(), err)
	}
	if resp.Values == nil {
		return [][]interface{}{}, nil
	}
	return resp.Values, nil
}

// FetchGrid implements GridSource
func (s *SheetsSource) FetchGrid(ctx context.Context) (domain.Grid, error) {
	values, err := s.FetchValues(ctx)
	if err != nil {
		return nil, err
	}
	return extract.GridFromValues(values), nil
}
