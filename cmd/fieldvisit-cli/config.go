package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-fieldvisit/pkg/wizard"
)

// Config keys. Each is overridable by a FIELDVISIT_* environment variable,
// e.g. FIELDVISIT_SHEET_ID.
const (
	cfgKeyCredentialsFile = "credentials_file"
	cfgKeySheetID         = "sheet_id"
	cfgKeyRootFolderID    = "root_folder_id"
	cfgKeyStepsFile       = "steps_file"

	envPrefix = "FIELDVISIT"
)

// appConfig is the resolved CLI configuration.
type appConfig struct {
	CredentialsFile string
	SheetID         string
	RootFolderID    string
	StepsFile       string
}

// loadConfig resolves configuration from, in order of precedence, the
// environment, the --config file, and the default search path. A missing
// config file is fine as long as the environment supplies the sheet id.
func loadConfig() (appConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("fieldvisit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".fieldvisit"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if configFile != "" || !notFound {
			return appConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := appConfig{
		CredentialsFile: v.GetString(cfgKeyCredentialsFile),
		SheetID:         v.GetString(cfgKeySheetID),
		RootFolderID:    v.GetString(cfgKeyRootFolderID),
		StepsFile:       v.GetString(cfgKeyStepsFile),
	}
	return cfg, nil
}

// loadSteps reads the configured step file, falling back to the built-in
// observation steps.
func loadSteps(cfg appConfig) ([]wizard.StepDefinition, error) {
	if cfg.StepsFile == "" {
		return wizard.DefaultSteps(), nil
	}
	data, err := os.ReadFile(cfg.StepsFile)
	if err != nil {
		return nil, fmt.Errorf("read steps file: %w", err)
	}
	steps, err := wizard.ParseSteps(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfg.StepsFile, err)
	}
	return steps, nil
}

// newLogger builds a console logger on stderr so log lines never interleave
// with the interactive prompts on stdout.
func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}
