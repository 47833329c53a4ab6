package compiler

import (
	"errors"
	"testing"
)

func TestNewStepID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "valid simple ID", input: "yum:install:docker"},
		{name: "valid two segments", input: "host:privileges"},
		{name: "valid with hyphens", input: "user:group:ec2-user:docker"},
		{name: "valid with absolute path", input: "git:clone:/opt/cvat"},
		{name: "valid with dots", input: "binary:download:docker-compose-1.25.0"},
		{name: "empty string", input: "", wantErr: ErrEmptyStepID},
		{name: "whitespace only", input: "   ", wantErr: ErrEmptyStepID},
		{name: "contains spaces", input: "yum install docker", wantErr: ErrInvalidStepID},
		{name: "starts with colon", input: ":install:docker", wantErr: ErrInvalidStepID},
		{name: "ends with colon", input: "yum:install:", wantErr: ErrInvalidStepID},
		{name: "starts with slash", input: "/opt:clone", wantErr: ErrInvalidStepID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewStepID(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewStepID(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStepID(%q) unexpected error: %v", tt.input, err)
			}
			if id.String() != tt.input {
				t.Errorf("String() = %q, want %q", id.String(), tt.input)
			}
		})
	}
}

func TestStepID_Provider(t *testing.T) {
	id := MustNewStepID("compose:up:cvat")
	if id.Provider() != "compose" {
		t.Errorf("Provider() = %q, want %q", id.Provider(), "compose")
	}
}

func TestStepID_EqualsAndZero(t *testing.T) {
	a := MustNewStepID("yum:install:git")
	b := MustNewStepID("yum:install:git")
	c := MustNewStepID("yum:install:docker")

	if !a.Equals(b) {
		t.Error("identical IDs should be equal")
	}
	if a.Equals(c) {
		t.Error("different IDs should not be equal")
	}
	if a.IsZero() {
		t.Error("constructed ID should not be zero")
	}
	if !(StepID{}).IsZero() {
		t.Error("zero value should be zero")
	}
}

func TestMustNewStepID_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNewStepID should panic on invalid input")
		}
	}()
	MustNewStepID("not valid")
}
