package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/comparator"
	"github.com/spigell/jd-comparator/internal/logger"
)

const (
	app = "jd-comparator"
)

type Config struct {
	API    *APIConfig    `mapstructure:"api"`
	Server *ServerConfig `mapstructure:"server"`
	Export *ExportConfig `mapstructure:"export"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base-url"`
	Origin    string        `mapstructure:"origin"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jd-comparator compares a resume with a job description using the comparison api",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("api.base-url", "API_BASE_URL"); err != nil {
		log.Fatalf("binding API_BASE_URL environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jd-comparator.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base-url", comparator.DefaultBaseURL)
	v.SetDefault("api.origin", comparator.DefaultOrigin)
	v.SetDefault("api.timeout", time.Minute)
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("export.dir", ".")
}

func initConfig() {
	// A missing .env is fine; API_BASE_URL may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig reads the explicit config file, or jd-comparator.yaml from the
// current directory when it exists. Defaults apply without any file.
func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	return nil
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil || config.API == nil || config.Server == nil || config.Export == nil {
		return nil, fmt.Errorf("incomplete configuration")
	}

	return config, nil
}

// newClient builds the comparison api client described by cfg.
func newClient(cfg *APIConfig, l *zap.Logger) (*comparator.Client, error) {
	baseURL, err := comparator.ResolveBaseURL(cfg.BaseURL, cfg.Origin)
	if err != nil {
		return nil, err
	}

	client := comparator.New(logger.WithClientFields(l, baseURL, version), baseURL)
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	return client, nil
}

// setup is shared by the commands talking to the api.
func setup() (*Config, *zap.Logger, *comparator.Client) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig(viper.GetViper())
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	client, err := newClient(config.API, l)
	if err != nil {
		l.Fatal("creating the api client", zap.Error(err), zap.String("hint", "set api.base-url or API_BASE_URL"))
	}

	l = logger.WithClientFields(l, client.APIURL, version)
	l.Info("starting the jd-comparator")
	l.Debug("starting with config",
		zap.Duration("timeout", client.HTTPClient.Timeout),
		zap.String("listen", config.Server.Listen),
		zap.String("export_dir", config.Export.Dir),
	)

	return config, l, client
}
