// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/absmach/clm/pkg/errors"
	clmsdk "github.com/absmach/clm/sdk"
	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
)

const (
	defURL          = "http://localhost:9010"
	defLimit uint64 = 10
	configEnv       = "CLM_CLI_CONFIG"
	configDir       = "clm"
	configFile      = "config.toml"
	filePermission  = 0o600
)

var (
	errReadConfig    = errors.New("failed to read config file")
	errWritingConfig = errors.New("failed to write config file")
	errUnknownKey    = errors.New("unknown config key")
	errInvalidValue  = errors.New("invalid config value")
)

type remote struct {
	URL             string `toml:"url" json:"url"`
	TLSVerification bool   `toml:"tls_verification" json:"tls_verification"`
}

type output struct {
	Raw    bool   `toml:"raw" json:"raw"`
	Offset uint64 `toml:"offset" json:"offset"`
	Limit  uint64 `toml:"limit" json:"limit"`
}

// intentDefaults fill issue and renew intents when the flags are not given.
type intentDefaults struct {
	Profile      string `toml:"profile" json:"profile"`
	ValidityDays int    `toml:"validity_days" json:"validity_days"`
}

type config struct {
	Remote  remote         `toml:"remote" json:"remote"`
	Output  output         `toml:"output" json:"output"`
	Intents intentDefaults `toml:"intents" json:"intents"`
}

func defaultConfig() config {
	return config{
		Remote: remote{URL: defURL},
		Output: output{Limit: defLimit},
	}
}

// configPath resolves the config file from the flag, the environment and
// finally the user configuration directory.
func configPath() (string, error) {
	if ConfigPath != "" {
		return ConfigPath, nil
	}
	if p := os.Getenv(configEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDir, configFile), nil
}

func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		c := defaultConfig()
		return c, saveConfig(path, c)
	case err != nil:
		return config{}, errors.Wrap(errReadConfig, err)
	}

	c := defaultConfig()
	if err := toml.Unmarshal(data, &c); err != nil {
		return config{}, errors.Wrap(errReadConfig, err)
	}
	return c, nil
}

func saveConfig(path string, c config) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(errWritingConfig, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errWritingConfig, err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return errors.Wrap(errWritingConfig, err)
	}
	return nil
}

// ParseConfig merges the config file into the SDK configuration and the
// output settings. Flags given on the command line take precedence.
func ParseConfig(cmd *cobra.Command, sdkConf clmsdk.Config) (clmsdk.Config, error) {
	path, err := configPath()
	if err != nil {
		return sdkConf, err
	}
	c, err := loadConfig(path)
	if err != nil {
		return sdkConf, err
	}

	flags := cmd.Flags()
	if !flags.Changed("limit") && c.Output.Limit != 0 {
		Limit = c.Output.Limit
	}
	if !flags.Changed("offset") {
		Offset = c.Output.Offset
	}
	RawOutput = RawOutput || c.Output.Raw
	if DefaultProfile == "" {
		DefaultProfile = c.Intents.Profile
	}
	if DefaultValidity == 0 {
		DefaultValidity = c.Intents.ValidityDays
	}

	if sdkConf.URL == "" {
		sdkConf.URL = c.Remote.URL
	}
	sdkConf.TLSVerification = sdkConf.TLSVerification || c.Remote.TLSVerification

	return sdkConf, nil
}

func (c *config) set(key, value string) error {
	var err error
	switch key {
	case "url":
		c.Remote.URL = value
	case "tls_verification":
		c.Remote.TLSVerification, err = strconv.ParseBool(value)
	case "raw":
		c.Output.Raw, err = strconv.ParseBool(value)
	case "limit":
		c.Output.Limit, err = strconv.ParseUint(value, 10, 64)
	case "offset":
		c.Output.Offset, err = strconv.ParseUint(value, 10, 64)
	case "profile":
		c.Intents.Profile = value
	case "validity_days":
		c.Intents.ValidityDays, err = strconv.Atoi(value)
	default:
		return errors.Wrap(errUnknownKey, errors.New(key))
	}
	if err != nil {
		return errors.Wrap(errInvalidValue, err)
	}
	return nil
}

// NewConfigCmd returns config command.
func NewConfigCmd() *cobra.Command {
	show := &cobra.Command{
		Use:   "show",
		Short: "Show config",
		Long:  `Prints the CLI configuration and the file it was read from.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			path, err := configPath()
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			c, err := loadConfig(path)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, map[string]any{"path": path, "config": c})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set config value",
		Long: "Sets a value in the CLI config file.\n" +
			"Keys: url, tls_verification, raw, limit, offset, profile, validity_days.",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			path, err := configPath()
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			c, err := loadConfig(path)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			if err := c.set(args[0], args[1]); err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			if err := saveConfig(path, c); err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd := cobra.Command{
		Use:   "config [show | set]",
		Short: "CLI configuration",
		Long:  `CLI configuration: show, set.`,
	}
	cmd.AddCommand(show, set)

	return &cmd
}
