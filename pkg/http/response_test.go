package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	apperrors "shelterbook/pkg/errors"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "conflict", err: apperrors.ConflictWithReason("overlap", "booking_conflict"), wantStatus: http.StatusConflict, wantCode: apperrors.CodeConflict},
		{name: "validation", err: apperrors.Validation("bad window", nil), wantStatus: http.StatusUnprocessableEntity, wantCode: apperrors.CodeValidation},
		{name: "not found", err: apperrors.NotFoundWithID("Booking", "x"), wantStatus: http.StatusNotFound, wantCode: apperrors.CodeNotFound},
		{name: "wrapped app error", err: fmt.Errorf("transaction failed: %w", apperrors.InvalidInput("bad id")), wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{name: "plain error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError returned %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, body.Code)
			}
		})
	}
}

func TestWriteError_ConflictReason(t *testing.T) {
	rec := httptest.NewRecorder()
	_ = WriteError(rec, apperrors.ConflictWithReason("full", "capacity_exceeded"))

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Details["reason"] != "capacity_exceeded" {
		t.Errorf("expected reason capacity_exceeded, got %v", body.Details["reason"])
	}
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{query: "", wantLimit: 10, wantOffset: 0},
		{query: "limit=5&offset=20", wantLimit: 5, wantOffset: 20},
		{query: "limit=1000", wantLimit: 100, wantOffset: 0},
		{query: "offset=-3", wantLimit: 10, wantOffset: 0},
		{query: "limit=abc", wantErr: true},
		{query: "offset=1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestExtractFloatAndTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?min_lat=46.5&bad=north&start=2026-03-14T10:00:00Z&late=tomorrow", nil)

	if v, err := ExtractFloat(r, "min_lat"); err != nil || v == nil || *v != 46.5 {
		t.Errorf("ExtractFloat(min_lat) = %v, %v", v, err)
	}
	if v, err := ExtractFloat(r, "max_lat"); err != nil || v != nil {
		t.Errorf("missing float should be nil, got %v, %v", v, err)
	}
	if _, err := ExtractFloat(r, "bad"); err == nil {
		t.Error("expected error for non-numeric float")
	}
	if v, err := ExtractTime(r, "start"); err != nil || v == nil || v.Hour() != 10 {
		t.Errorf("ExtractTime(start) = %v, %v", v, err)
	}
	if _, err := ExtractTime(r, "late"); err == nil {
		t.Error("expected error for non-RFC3339 time")
	}
}
