package config

import (
	"strings"
	"testing"

	"github.com/adamancini/backcycle/internal/types"
)

func validCyclefile() *Cyclefile {
	return &Cyclefile{
		Version: 1,
		Triggers: map[string]Trigger{
			"nightly": {Storages: []Storage{
				{Kind: types.StorageKindLocal, Path: "/backups", Keep: 7},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Cyclefile)
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid",
			mutate: func(c *Cyclefile) {},
		},
		{
			name: "unsupported version",
			mutate: func(c *Cyclefile) {
				c.Version = 2
			},
			wantErr:     true,
			errContains: "unsupported version",
		},
		{
			name: "negative concurrency",
			mutate: func(c *Cyclefile) {
				c.Concurrency = -1
			},
			wantErr:     true,
			errContains: "concurrency",
		},
		{
			name: "trigger with path separator",
			mutate: func(c *Cyclefile) {
				c.Triggers["../etc"] = c.Triggers["nightly"]
			},
			wantErr:     true,
			errContains: "invalid trigger name",
		},
		{
			name: "trigger without storages",
			mutate: func(c *Cyclefile) {
				c.Triggers["weekly"] = Trigger{}
			},
			wantErr:     true,
			errContains: "at least one storage",
		},
		{
			name: "invalid kind",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"].Storages[0].Kind = "tape"
			},
			wantErr:     true,
			errContains: "invalid storage kind",
		},
		{
			name: "invalid keep",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"].Storages[0].Keep = "forever"
			},
			wantErr:     true,
			errContains: ".keep",
		},
		{
			name: "missing keep",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"].Storages[0].Keep = nil
			},
			wantErr:     true,
			errContains: "keep is required",
		},
		{
			name: "local without path",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"].Storages[0].Path = ""
			},
			wantErr:     true,
			errContains: "path is required",
		},
		{
			name: "remote without command",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"] = Trigger{Storages: []Storage{{Kind: types.StorageKindS3, Keep: 3}}}
			},
			wantErr:     true,
			errContains: "command is required for s3 storage",
		},
		{
			name: "remote with command",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"] = Trigger{Storages: []Storage{
					{Kind: types.StorageKindS3, Keep: 3, Command: []string{"aws", "s3", "rm"}},
				}}
			},
		},
		{
			name: "empty program name",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"].Storages[0].Command = []string{" ", "arg"}
			},
			wantErr:     true,
			errContains: "program name is required",
		},
		{
			name: "duplicate storage",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"] = Trigger{Storages: []Storage{
					{Kind: types.StorageKindLocal, Path: "/a", Keep: 1},
					{Kind: types.StorageKindLocal, Path: "/b", Keep: 1},
				}}
			},
			wantErr:     true,
			errContains: "duplicate storage 'Local'",
		},
		{
			name: "same kind with distinct ids",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"] = Trigger{Storages: []Storage{
					{Kind: types.StorageKindLocal, Path: "/a", Keep: 1},
					{Kind: types.StorageKindLocal, ID: "usb", Path: "/b", Keep: 1},
				}}
			},
		},
		{
			name: "invalid storage id",
			mutate: func(c *Cyclefile) {
				c.Triggers["nightly"].Storages[0].ID = "a/b"
			},
			wantErr:     true,
			errContains: "invalid storage id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCyclefile()
			tt.mutate(c)

			err := Validate(c)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "triggers.nightly", Message: "bad"}
	if err.Error() != "triggers.nightly: bad" {
		t.Errorf("Error() = %q, want %q", err.Error(), "triggers.nightly: bad")
	}
}
