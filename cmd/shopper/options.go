package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abgdnv/marketplace/internal/client"
	"github.com/abgdnv/marketplace/pkg/config/configloader"
)

const appName = "shopper"

var _ configloader.Validator = (*options)(nil)

// options are read from flags, shopper.yaml, .env and SHOPPER_* variables, e.g. SHOPPER_EMAIL.
type options struct {
	API      string        `koanf:"api"`
	Timeout  time.Duration `koanf:"timeout"`
	Email    string        `koanf:"email"`
	Password string        `koanf:"password"`
	Token    string        `koanf:"token"`
	Page     int           `koanf:"page"`
	Limit    int           `koanf:"limit"`
	Log      string        `koanf:"log"`
}

func (o *options) Validate() error {
	if !strings.HasPrefix(o.API, "http://") && !strings.HasPrefix(o.API, "https://") {
		return fmt.Errorf("api must be an http(s) URL: %q", o.API)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than zero")
	}
	if o.Page < 1 {
		return fmt.Errorf("page must be a positive integer")
	}
	if o.Limit < 1 || o.Limit > 100 {
		return fmt.Errorf("limit must be an integer between 1 and 100")
	}
	return nil
}

func newFlagSet(output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.String("api", "http://localhost:8080", "marketplace base URL")
	fs.Duration("timeout", client.DefaultTimeout, "per request timeout")
	fs.String("email", "", "account email")
	fs.String("password", "", "account password")
	fs.String("token", "", "bearer token from a previous login")
	fs.Int("page", 1, "catalog page")
	fs.Int("limit", 5, "catalog page size")
	fs.String("log", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: shopper [flags] login|me|products [search]|toggle <id>...\n")
		fs.PrintDefaults()
	}
	return fs
}

// loadOptions parses args and layers them over the config file and the environment.
// It returns the remaining arguments, i.e. the command.
func loadOptions(args []string, output io.Writer, loaderOpts ...configloader.Option) (*options, []string, error) {
	fs := newFlagSet(output)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	loaderOpts = append([]configloader.Option{
		configloader.WithConfigFile(appName + ".yaml"),
		configloader.WithFlags(fs),
	}, loaderOpts...)
	o, err := configloader.Load[*options](appName, loaderOpts...)
	if err != nil {
		return nil, nil, err
	}
	return o, fs.Args(), nil
}
