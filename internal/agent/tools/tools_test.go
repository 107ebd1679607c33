package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(context.Background(), GetQueryTools())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegistryValidate(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr string
	}{
		{"valid", "searchEntity", `{"description":"unicorn companies"}`, ""},
		{"unknown tool", "dropTables", `{}`, "unknown tool"},
		{"missing required", "searchEntity", `{}`, `missing required argument "description"`},
		{"empty required", "searchEntity", `{"description":""}`, "is empty"},
		{"not an object", "searchEntity", `"just a string"`, "not a JSON object"},
		{"malformed json", "searchEntity", `{"description":`, "not a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.tool, tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryExecuteSearchEntity(t *testing.T) {
	r := newTestRegistry(t)

	out, err := r.Execute(context.Background(), "searchEntity", `{"description":"top fintech startups by valuation"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var match struct {
		TableName  string  `json:"tableName"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(out), &match); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if match.TableName != "unicorns" {
		t.Fatalf("tableName = %q, want unicorns", match.TableName)
	}
	if match.Confidence < 0.9 {
		t.Fatalf("confidence = %v, want >= 0.9 for a keyword match", match.Confidence)
	}
}

func TestRegistryExecuteUnknownSubject(t *testing.T) {
	r := newTestRegistry(t)

	out, err := r.Execute(context.Background(), "searchEntity", `{"description":"weather in paris"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var match struct {
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(out), &match); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if match.Confidence >= 0.9 {
		t.Fatalf("confidence = %v, want low for an unmatched subject", match.Confidence)
	}
}

func TestRegistryInfos(t *testing.T) {
	r := newTestRegistry(t)

	infos := r.Infos()
	if len(infos) != 1 || infos[0].Name != "searchEntity" {
		t.Fatalf("infos = %+v", infos)
	}
}
