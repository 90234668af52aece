package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/admin"
	"github.com/kiranshivaraju/rpohub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBootstrapFlags(t *testing.T) {
	opts, err := parseBootstrapFlags([]string{"-tenant", "Acme Recruiting", "-email", "ops@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Recruiting", opts.Tenant)
	assert.Equal(t, "ops@acme.test", opts.Email)
}

func TestParseBootstrapFlags_MissingEmail(t *testing.T) {
	_, err := parseBootstrapFlags([]string{"-tenant", "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-email")
}

func TestParseBootstrapFlags_UnknownFlag(t *testing.T) {
	_, err := parseBootstrapFlags([]string{"-tenant", "Acme", "-email", "a@b.test", "-force"})
	require.Error(t, err)
}

func TestParseRecordMetricFlags(t *testing.T) {
	tenantID := uuid.New()
	jobID := uuid.New()

	opts, err := parseRecordMetricFlags([]string{
		"-tenant", tenantID.String(),
		"-job", jobID.String(),
		"-date", "2026-03-14",
		"-impressions", "300",
		"-clicks", "10",
		"-applications", "2",
	})
	require.NoError(t, err)
	assert.Equal(t, tenantID, opts.TenantID)
	assert.Equal(t, models.JobDailyMetric{
		JobID:        jobID,
		Date:         time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Impressions:  300,
		Clicks:       10,
		Applications: 2,
	}, opts.Metric)
}

func TestParseRecordMetricFlags_Invalid(t *testing.T) {
	valid := map[string]string{
		"-tenant": uuid.NewString(),
		"-job":    uuid.NewString(),
		"-date":   "2026-03-14",
	}

	tests := []struct {
		name    string
		flag    string
		value   string
		wantErr string
	}{
		{"bad tenant", "-tenant", "acme", "-tenant must be a valid UUID"},
		{"bad job", "-job", "42", "-job must be a valid UUID"},
		{"bad date", "-date", "14/03/2026", "-date must be YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []string
			for f, v := range valid {
				if f == tt.flag {
					v = tt.value
				}
				args = append(args, f, v)
			}
			_, err := parseRecordMetricFlags(args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrintBootstrap_ShowsRawKey(t *testing.T) {
	res := &admin.BootstrapResult{
		Tenant: &models.Tenant{ID: uuid.New(), Name: "Acme"},
		Admin:  &models.User{ID: uuid.New(), Email: "ops@acme.test"},
		Key:    &admin.CreatedKey{RawKey: "rpo_0123456789abcdef"},
	}

	var buf bytes.Buffer
	printBootstrap(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "ops@acme.test")
	assert.Contains(t, out, "api key: rpo_0123456789abcdef")
}

func TestPrintUsage_ListsCommands(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)

	out := buf.String()
	assert.Contains(t, out, "bootstrap")
	assert.Contains(t, out, "record-metric")
}
