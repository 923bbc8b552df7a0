package cfg

import (
	"testing"
	"time"
)

func validSettings() Settings {
	return Settings{
		RawPath:        "data/survey.csv",
		CleanedPath:    "data/survey_cleaned.csv",
		DataPath:       "data",
		ReportDir:      "reports",
		ModelDir:       "models",
		Seed:           42,
		TestFraction:   0.2,
		CVFolds:        5,
		ProbThreshold:  0.5,
		TopK:           5,
		ListenPort:     8090,
		MetricsPort:    8080,
		RequestTimeout: 10 * time.Second,
		DriftThreshold: 0.2,
		DriftCooldown:  15 * time.Minute,
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{
			name:    "valid settings",
			mutate:  func(s *Settings) {},
			wantErr: false,
		},
		{
			name:    "empty raw path",
			mutate:  func(s *Settings) { s.RawPath = "" },
			wantErr: true,
		},
		{
			name:    "empty model dir",
			mutate:  func(s *Settings) { s.ModelDir = "" },
			wantErr: true,
		},
		{
			name:    "test fraction zero",
			mutate:  func(s *Settings) { s.TestFraction = 0 },
			wantErr: true,
		},
		{
			name:    "test fraction too large",
			mutate:  func(s *Settings) { s.TestFraction = 0.5 },
			wantErr: true,
		},
		{
			name:    "too few folds",
			mutate:  func(s *Settings) { s.CVFolds = 1 },
			wantErr: true,
		},
		{
			name:    "too many folds",
			mutate:  func(s *Settings) { s.CVFolds = 21 },
			wantErr: true,
		},
		{
			name:    "threshold at zero",
			mutate:  func(s *Settings) { s.ProbThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "threshold at one",
			mutate:  func(s *Settings) { s.ProbThreshold = 1 },
			wantErr: true,
		},
		{
			name:    "top-k zero",
			mutate:  func(s *Settings) { s.TopK = 0 },
			wantErr: true,
		},
		{
			name:    "privileged listen port",
			mutate:  func(s *Settings) { s.ListenPort = 80 },
			wantErr: true,
		},
		{
			name:    "metrics port out of range",
			mutate:  func(s *Settings) { s.MetricsPort = 70000 },
			wantErr: true,
		},
		{
			name:    "same listen and metrics port",
			mutate:  func(s *Settings) { s.MetricsPort = s.ListenPort },
			wantErr: true,
		},
		{
			name:    "request timeout too short",
			mutate:  func(s *Settings) { s.RequestTimeout = 100 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "request timeout too long",
			mutate:  func(s *Settings) { s.RequestTimeout = 2 * time.Minute },
			wantErr: true,
		},
		{
			name:    "drift threshold zero",
			mutate:  func(s *Settings) { s.DriftThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "drift threshold too large",
			mutate:  func(s *Settings) { s.DriftThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "drift cooldown too short",
			mutate:  func(s *Settings) { s.DriftCooldown = 10 * time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := validateSettings(&s)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
