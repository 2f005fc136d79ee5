package main

import (
	"errors"
	"testing"

	appconfig "github.com/mediconnect/mediconnect-platform/internal/config"
)

func TestMigrationTargets(t *testing.T) {
	tests := []struct {
		name    string
		cfg     appconfig.Config
		want    []string
		wantErr error
	}{
		{
			name: "primary only",
			cfg:  appconfig.Config{DatabaseURL: "postgres://app"},
			want: []string{targetPrimary},
		},
		{
			name: "audit shares primary",
			cfg:  appconfig.Config{DatabaseURL: "postgres://app", AuditDatabaseURL: " postgres://app "},
			want: []string{targetPrimary},
		},
		{
			name: "separate audit database",
			cfg:  appconfig.Config{DatabaseURL: "postgres://app", AuditDatabaseURL: "postgres://audit"},
			want: []string{targetPrimary, targetAudit},
		},
		{
			name: "audit only",
			cfg:  appconfig.Config{AuditDatabaseURL: "postgres://audit"},
			want: []string{targetAudit},
		},
		{
			name:    "nothing configured",
			wantErr: errNoDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := migrationTargets(&tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected targets %v, got %+v", tt.want, got)
			}
			for i, name := range tt.want {
				if got[i].name != name {
					t.Errorf("target %d: expected %s, got %s", i, name, got[i].name)
				}
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand(nil)
	if err != nil || cmd.force {
		t.Fatalf("expected plain up, got %+v %v", cmd, err)
	}

	cmd, err = parseCommand([]string{"force", "2"})
	if err != nil {
		t.Fatalf("parse force: %v", err)
	}
	if !cmd.force || cmd.version != 2 || cmd.target != targetPrimary {
		t.Fatalf("unexpected command %+v", cmd)
	}

	cmd, err = parseCommand([]string{"force", "1", "audit"})
	if err != nil || cmd.target != targetAudit {
		t.Fatalf("expected audit target, got %+v %v", cmd, err)
	}

	for _, args := range [][]string{{"down"}, {"force"}, {"force", "x"}, {"force", "1", "replica"}} {
		if _, err := parseCommand(args); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}
