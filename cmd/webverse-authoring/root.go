/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/fatih/structs"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/authoring"
	"github.com/toothbrush/webverse-authoring/internal/termfmt"
)

const defaultConfig = "~/.config/webverse-authoring.yaml"

var (
	// Store the result of binding cobra flags
	Config       string
	ConfigActual string
	EnvFile      string
	Debug        bool

	AEMHost            string
	AEMTimeout         string
	AuthMode           string
	AEMUsername        string
	AEMPassword        string
	ServiceTokenFile   string
	ServiceUserMapping string
	TokenMaxAge        string
	AssetsRoot         string
	Markets            []string

	LogLevel    string
	Environment string

	ParsedConfig YamlConfig

	logger = zap.NewNop()
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "webverse-authoring",
	Short: "Create market sites in Adobe AEM from templates",
	Long: `
Builds the pages of a multi-market site in AEM: error pages, protected pages, the HCP popup, the
login page, experience fragments and DAM folders, all from templates kept in the DAM.  Run it as
an HTTP API with "serve", or use the other commands straight from your terminal.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("webverse-authoring: failed to initialise config: %w", err)
		}

		var err error
		logger, err = newLogger(LogLevel, Environment, Debug)
		if err != nil {
			return fmt.Errorf("webverse-authoring: failed to initialise logger: %w", err)
		}

		termfmt.SetEnabled(os.Getenv("NO_COLOR") == "")
		debugLog("config file: %q", ConfigActual)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: "+defaultConfig+", respects WEBVERSE_AUTHORING_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")

	rootCmd.PersistentFlags().StringVar(&AEMHost, "aem-host", "", "AEM author instance, e.g. https://author-p1-e2.adobeaemcloud.com")
	rootCmd.PersistentFlags().StringVar(&AEMTimeout, "aem-timeout", "30", "timeout of each call to AEM, in seconds or as a duration like 45s")
	rootCmd.PersistentFlags().StringVar(&AuthMode, "auth-mode", string(aem.BasicAuthMethod), "how to authenticate to AEM: basic or service_token")
	rootCmd.PersistentFlags().StringVar(&AEMUsername, "aem-username", "", "AEM username, for basic auth")
	rootCmd.PersistentFlags().StringVar(&AEMPassword, "aem-password", "", "AEM password, for basic auth")
	rootCmd.PersistentFlags().StringVar(&ServiceTokenFile, "service-token-file", "", "file holding the AEM service user's bearer token")
	rootCmd.PersistentFlags().StringVar(&ServiceUserMapping, "service-user-mapping", "", "service user mapping, bundle:subservice=user")
	rootCmd.PersistentFlags().StringVar(&TokenMaxAge, "token-max-age", aem.DefaultTokenMaxAge.String(), "re-read the service token after this long")
	rootCmd.PersistentFlags().StringVar(&AssetsRoot, "assets-root", aem.DefaultDAMRoot, "DAM root that template and upload paths are resolved under")
	rootCmd.PersistentFlags().StringSliceVar(&Markets, "markets", authoring.DefaultMarkets().List(), "market codes this deployment serves")

	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&Environment, "environment", "development", "deployment environment; production logs JSON")
}

// Flags that can also be set from the environment.  The environment wins over the config file,
// and an explicit flag wins over both.
var envVars = map[string]string{
	"debug":                "DEBUG",
	"aem-host":             "AEM_HOST",
	"aem-timeout":          "AEM_TIMEOUT",
	"auth-mode":            "AEM_AUTH_MODE",
	"aem-username":         "AEM_USERNAME",
	"aem-password":         "AEM_PASSWORD",
	"service-token-file":   "AEM_SERVICE_TOKEN_FILE",
	"service-user-mapping": "AEM_SERVICE_USER_MAPPING",
	"token-max-age":        "AEM_TOKEN_MAX_AGE",
	"assets-root":          "AEM_ASSETS_ROOT",
	"markets":              "MARKETS",
	"log-level":            "LOG_LEVEL",
	"environment":          "ENVIRONMENT",
	"host":                 "HOST",
	"port":                 "PORT",
	"api-prefix":           "API_V1_PREFIX",
}

func initializeConfig(cmd *cobra.Command) error {
	if err := loadEnvFile(cmd); err != nil {
		return err
	}
	if err := bindEnv(cmd); err != nil {
		return err
	}

	explicit := Config != ""
	if Config == "" {
		// Did the user provide an ENV?
		if envConfig := os.Getenv("WEBVERSE_AUTHORING_CONFIG"); envConfig != "" {
			Config = envConfig
			explicit = true
		} else {
			Config = defaultConfig
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("webverse-authoring: unable to expand homedir: %w", err)
	}
	Config = config

	// Unlike flags and the environment, the config file is optional.
	if _, err := os.Stat(Config); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return fmt.Errorf("webverse-authoring: specified config file does not exist: %w", err)
		}
		return nil
	}
	ConfigActual = Config

	yamlFile, err := os.ReadFile(Config)
	if err != nil {
		return fmt.Errorf("webverse-authoring: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("webverse-authoring: issue parsing config file: %w", err)
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("webverse-authoring: failed to bind flags: %w", err)
	}

	return nil
}

// loadEnvFile reads .env into the environment.  Variables that are already set are kept, and a
// missing .env is only an error if one was asked for.
func loadEnvFile(cmd *cobra.Command) error {
	if EnvFile == "" {
		return nil
	}
	path, err := homedir.Expand(EnvFile)
	if err != nil {
		return fmt.Errorf("webverse-authoring: unable to expand homedir: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("webverse-authoring: couldn't load %s: %w", path, err)
	}
	return nil
}

func bindEnv(cmd *cobra.Command) error {
	for key, env := range envVars {
		value, ok := os.LookupEnv(env)
		if !ok || value == "" || cmd.Flag(key) == nil || cmd.Flags().Changed(key) {
			continue
		}
		if err := cmd.Flags().Set(key, value); err != nil {
			return fmt.Errorf("webverse-authoring: invalid %s: %w", env, err)
		}
	}
	return nil
}

type YamlConfig struct {
	Debug   *bool `yaml:"debug"`
	WithVCR *bool `yaml:"with-vcr"`

	AEMHost            string   `yaml:"aem-host"`
	AEMTimeout         string   `yaml:"aem-timeout"`
	AuthMode           string   `yaml:"auth-mode"`
	AEMUsername        string   `yaml:"aem-username"`
	AEMPassword        string   `yaml:"aem-password"`
	ServiceTokenFile   string   `yaml:"service-token-file"`
	ServiceUserMapping string   `yaml:"service-user-mapping"`
	TokenMaxAge        string   `yaml:"token-max-age"`
	AssetsRoot         string   `yaml:"assets-root"`
	Markets            []string `yaml:"markets"`

	LogLevel    string `yaml:"log-level"`
	Environment string `yaml:"environment"`

	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	APIPrefix string `yaml:"api-prefix"`
	Cassette  string `yaml:"cassette"`
}

// Bind each cobra flag to its value from the config file, unless it was already set.
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("webverse-authoring: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// Legitimate: the config file may hold "port", but "page show" has no such flag.
			continue
		}
		if cmd.Flags().Changed(key) {
			continue
		}

		var values []string
		switch field.Kind() {
		case reflect.Ptr:
			// YamlConfig only uses pointers for bools.
			b, ok := field.Value().(*bool)
			if !ok {
				return fmt.Errorf("webverse-authoring: found unrecognised field: %+v", field.Name())
			}
			if b != nil {
				values = []string{fmt.Sprintf("%v", *b)}
			}

		case reflect.String:
			s, ok := field.Value().(string)
			if !ok {
				return fmt.Errorf("webverse-authoring: found unrecognised field: %+v", field.Name())
			}
			if s != "" {
				values = []string{s}
			}

		case reflect.Slice:
			ss, ok := field.Value().([]string)
			if !ok {
				return fmt.Errorf("webverse-authoring: found unrecognised field: %+v", field.Name())
			}
			// yes, repeatedly calling Set() appends to the slice...
			values = ss

		default:
			return fmt.Errorf("webverse-authoring: found unrecognised field: %+v", field.Name())
		}

		for _, s := range values {
			if err := cmd.Flags().Set(key, s); err != nil {
				return fmt.Errorf("webverse-authoring: invalid %s in config file: %w", key, err)
			}
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("webverse-authoring: execution error: %w", err)
	}

	return nil
}
