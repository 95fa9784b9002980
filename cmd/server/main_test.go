package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dialtone/callcenter/backend/internal/config"
	"github.com/dialtone/callcenter/backend/internal/types"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("expected status ok, got %s", response["status"])
	}
	if response["service"] != "callcenter-backend" {
		t.Errorf("expected service callcenter-backend, got %s", response["service"])
	}
}

func TestSeedAgent(t *testing.T) {
	tests := []struct {
		name     string
		seed     config.AgentSeed
		capacity int
		want     []types.Department
	}{
		{
			name: "customer service keeps departments",
			seed: config.AgentSeed{
				ID:          "a1",
				Role:        types.RoleCustomerService,
				Departments: []types.Department{"billing"},
			},
			capacity: 2,
			want:     []types.Department{"billing"},
		},
		{
			name: "supervisor gains supervisor queue",
			seed: config.AgentSeed{
				ID:          "s1",
				Role:        types.RoleSupervisor,
				Departments: []types.Department{"billing"},
			},
			capacity: 1,
			want:     []types.Department{types.DeptSupervisor, "billing"},
		},
		{
			name: "supervisor already serving supervisor queue",
			seed: config.AgentSeed{
				ID:          "s2",
				Role:        types.RoleSupervisor,
				Departments: []types.Department{types.DeptSupervisor},
			},
			capacity: 1,
			want:     []types.Department{types.DeptSupervisor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := seedAgent(tt.seed, tt.capacity)

			if agent.Capacity != tt.capacity {
				t.Errorf("capacity = %d, want %d", agent.Capacity, tt.capacity)
			}
			if len(agent.Departments) != len(tt.want) {
				t.Fatalf("departments = %v, want %v", agent.Departments, tt.want)
			}
			for i, dept := range tt.want {
				if agent.Departments[i] != dept {
					t.Errorf("departments[%d] = %s, want %s", i, agent.Departments[i], dept)
				}
			}
		})
	}
}
