package main

import (
	"context"
	"testing"
	"time"

	"github.com/jonathan/resume-parser/internal/config"
	"github.com/jonathan/resume-parser/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Layering(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, t.TempDir(), "config.json", []byte(`{
		"workers": 2,
		"section_capture": "section",
		"batch_policy": "abort",
		"document_timeout": "45s"
	}`))
	t.Setenv("SECTION_CAPTURE", "line")

	cfg, err := loadConfig(path, func(c *config.Config) {
		c.Workers = 3
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers, "flags beat env and file")
	assert.Equal(t, "line", cfg.SectionCapture, "env beats file")
	assert.Equal(t, "abort", cfg.BatchPolicy, "file beats defaults")
	assert.Equal(t, 45*time.Second, cfg.DocumentTimeout.Std())
	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.True(t, cfg.Sniff())
}

func TestLoadConfig_ValidateOutput(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      string
		args     []string
		expected bool
	}{
		{name: "default on", expected: true},
		{name: "file turns it off", file: `{"validate_output": false}`, expected: false},
		{name: "env beats file", file: `{"validate_output": false}`, env: "true", expected: true},
		{name: "env turns it off", env: "false", expected: false},
		{name: "flag beats env", env: "false", args: []string{"--validate"}, expected: true},
		{name: "flag turns it off", args: []string{"--validate=false"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv("VALIDATE_OUTPUT", tt.env)
			resetFlags(serveCmd)
			t.Cleanup(func() { resetFlags(serveCmd) })

			var path string
			if tt.file != "" {
				path = writeFile(t, t.TempDir(), "config.json", []byte(tt.file))
			}
			require.NoError(t, serveCmd.Flags().Parse(tt.args))

			cfg, err := loadConfig(path, serveOverrides(serveCmd.Flags()))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.ValidatesOutput())
		})
	}
}

func TestLoadConfig_InvalidValidateOutput(t *testing.T) {
	isolateEnv(t)
	t.Setenv("VALIDATE_OUTPUT", "sometimes")

	_, _, err := executeCommand(t, "parse", writeFile(t, t.TempDir(), "jane.txt", []byte(sampleResume)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATE_OUTPUT")
}

func TestLoadConfig_Invalid(t *testing.T) {
	isolateEnv(t)

	t.Setenv("PARSER_WORKERS", "many")
	_, err := loadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARSER_WORKERS")

	t.Setenv("PARSER_WORKERS", "")
	_, err = loadConfig("", func(c *config.Config) { c.LogFormat = "xml" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogFormat")
}

func TestBuildPipeline_PatternsOnly(t *testing.T) {
	isolateEnv(t)
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	p, cleanup, err := buildPipeline(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer cleanup()

	rec, info, err := p.Parse(context.Background(), types.Document{
		Filename: "jane.txt",
		Data:     []byte(sampleResume),
	})
	require.NoError(t, err)
	assert.Equal(t, types.FormatText, info.Format)
	assert.Equal(t, "Jane Doe", rec.Flat()["name"])
}

func TestBuildPipeline_BadCapture(t *testing.T) {
	cfg := config.Defaults()
	cfg.SectionCapture = "paragraph"

	_, cleanup, err := buildPipeline(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	cleanup()
}
