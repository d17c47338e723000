// Package config parses the h5ls command line and optional YAML profile
// files into a validated Config. Flags always override profile values.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/h5rest/h5rest/internal/exit"
	"github.com/h5rest/h5rest/internal/linktable"
)

// DefaultTimeout is the default timeout for HTTP requests.
const DefaultTimeout = 30 * time.Second

var (
	ErrNoArguments  = errors.New("no arguments provided")
	ErrNoEndpoint   = errors.New("no server endpoint specified")
	ErrNoDomain     = errors.New("no file domain specified")
	ErrInvalidSort  = errors.New(`sort must be "name" or "created"`)
	ErrInvalidOrder = errors.New(`order must be "asc" or "desc"`)
)

// Config is the complete configuration for the h5ls tool.
type Config struct {
	// Server and file
	Endpoint string
	Domain   string
	Path     string // object path within the file, "/" by default
	Username string
	Password string

	// Listing behavior
	Debug     bool
	Recursive bool
	Kind      linktable.IndexKind
	Order     linktable.Order

	// HTTP client configuration
	Insecure       bool
	CACertFile     string
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second (0 = unlimited)
}

// profile is the YAML shape of a connection profile file.
type profile struct {
	Endpoint  string  `yaml:"endpoint"`
	Domain    string  `yaml:"domain"`
	Username  string  `yaml:"username"`
	Password  string  `yaml:"password"`
	Insecure  bool    `yaml:"insecure"`
	CACert    string  `yaml:"cacert"`
	Timeout   string  `yaml:"timeout"`
	RateLimit float64 `yaml:"rate_limit"`
}

// sortFlag implements flag.Value for the -sort option.
type sortFlag linktable.IndexKind

func (s *sortFlag) String() string {
	if linktable.IndexKind(*s) == linktable.IndexCreated {
		return "created"
	}
	return "name"
}

func (s *sortFlag) Set(value string) error {
	switch value {
	case "name":
		*s = sortFlag(linktable.IndexName)
	case "created":
		*s = sortFlag(linktable.IndexCreated)
	default:
		return fmt.Errorf("%w, got: %s", ErrInvalidSort, value)
	}
	return nil
}

// orderFlag implements flag.Value for the -order option.
type orderFlag linktable.Order

func (o *orderFlag) String() string {
	if linktable.Order(*o) == linktable.Descending {
		return "desc"
	}
	return "asc"
}

func (o *orderFlag) Set(value string) error {
	switch value {
	case "asc":
		*o = orderFlag(linktable.Ascending)
	case "desc":
		*o = orderFlag(linktable.Descending)
	default:
		return fmt.Errorf("%w, got: %s", ErrInvalidOrder, value)
	}
	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	// Suppress the default usage and error output since we handle both.
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	var (
		endpoint    = fs.String("endpoint", "", "Server base URL, e.g. http://hsdshdflab.hdfgroup.org")
		domain      = fs.String("domain", "", "File domain to open, e.g. /home/test/tall.h5")
		username    = fs.String("user", "", "Username for HTTP basic authentication")
		password    = fs.String("password", "", "Password for HTTP basic authentication")
		profileFile = fs.String("profile", "", "Path to YAML connection profile (flags override it)")
		debug       = fs.Bool("debug", false, "Enable debug output showing request and response details")
		recursive   = fs.Bool("recursive", false, "Descend into subgroups")
		insecure    = fs.Bool("insecure", false, "Skip TLS certificate verification")
		caCertFile  = fs.String("cacert", "", "Path to CA certificate file for TLS verification")
		timeout     = fs.Duration("timeout", DefaultTimeout, "HTTP request timeout")
		rateLimit   = fs.Float64("rate-limit", 0, "Rate limit in requests per second (0 for unlimited)")
		sort        sortFlag
		order       orderFlag
	)
	fs.Var(&sort, "sort", `Sort key: "name" or "created"`)
	fs.Var(&order, "order", `Sort direction: "asc" or "desc"`)

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Errorf("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	config := &Config{
		Path:           "/",
		RequestTimeout: DefaultTimeout,
	}

	if *profileFile != "" {
		if err := config.applyProfile(*profileFile); err != nil {
			return nil, exit.Errorf("Error: failed to load profile: %v\n\n%s", err, Usage())
		}
	}

	// Explicitly set flags win over profile values.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "endpoint":
			config.Endpoint = *endpoint
		case "domain":
			config.Domain = *domain
		case "user":
			config.Username = *username
		case "password":
			config.Password = *password
		case "insecure":
			config.Insecure = *insecure
		case "cacert":
			config.CACertFile = *caCertFile
		case "timeout":
			config.RequestTimeout = *timeout
		case "rate-limit":
			config.RateLimit = *rateLimit
		}
	})

	config.Debug = *debug
	config.Recursive = *recursive
	config.Kind = linktable.IndexKind(sort)
	config.Order = linktable.Order(order)

	if paths := fs.Args(); len(paths) > 0 {
		config.Path = paths[0]
	}

	if err := config.Validate(); err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	return config, nil
}

// applyProfile loads a YAML profile file into the config as base values.
func (c *Config) applyProfile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read profile %s: %w", filename, err)
	}

	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse profile %s: %w", filename, err)
	}

	c.Endpoint = p.Endpoint
	c.Domain = p.Domain
	c.Username = p.Username
	c.Password = p.Password
	c.Insecure = p.Insecure
	c.CACertFile = p.CACert
	c.RateLimit = p.RateLimit
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in profile %s: %w", filename, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	if c.Domain == "" {
		return ErrNoDomain
	}

	if c.CACertFile != "" {
		if _, err := os.Stat(c.CACertFile); err != nil {
			return fmt.Errorf("CA certificate file %s not found: %w", c.CACertFile, err)
		}
	}

	return nil
}

// TLSConfig returns a TLS configuration based on the config settings.
func (c *Config) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.Insecure,
	}

	if c.CACertFile != "" {
		caCertPool, err := x509.SystemCertPool()
		if err != nil {
			caCertPool = x509.NewCertPool()
		}

		caCert, err := os.ReadFile(c.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %s: %w", c.CACertFile, err)
		}

		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", c.CACertFile)
		}

		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// HTTPClient creates an HTTP client configured with the settings from this Config.
func (c *Config) HTTPClient() (*http.Client, error) {
	tlsConfig, err := c.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
	}

	return &http.Client{
		Timeout: c.RequestTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}, nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `h5ls - list links and objects in a remote HDF5 file

Usage: h5ls [options] [path]

Options:
  --endpoint URL          Server base URL
  --domain PATH           File domain to open, e.g. /home/test/tall.h5
  --user NAME             Username for HTTP basic authentication
  --password VALUE        Password for HTTP basic authentication
  --profile FILE          YAML connection profile (flags override it)
  --recursive             Descend into subgroups
  --sort KEY              Sort key: "name" or "created" (default: name)
  --order DIR             Sort direction: "asc" or "desc" (default: asc)
  --debug                 Enable debug output showing request and response details
  --insecure              Skip TLS certificate verification
  --cacert FILE           Path to CA certificate file for TLS verification
  --timeout DURATION      HTTP request timeout (default: 30s)
  --rate-limit N          Rate limit in requests per second (0 for unlimited)
  -h, --help              Show this help message

Examples:
  h5ls --endpoint http://localhost:5101 --domain /home/test/tall.h5
  h5ls --profile lab.yaml /g1/g1.1              # list a subgroup
  h5ls --profile lab.yaml --recursive           # walk the whole file
  h5ls --profile lab.yaml --sort created --order desc`
}
