package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envConfig mirrors the IMBO_* environment variables.
type envConfig struct {
	Hosts      []string `env:"IMBO_HOST" env-separator:","`
	User       string   `env:"IMBO_USER"`
	PublicKey  string   `env:"IMBO_PUBLIC_KEY"`
	PrivateKey string   `env:"IMBO_PRIVATE_KEY"`
	Profile    string   `env:"IMBO_PROFILE"`
}

func readEnv() (envConfig, error) {
	var cfg envConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.Hosts = normalizeHosts(cfg.Hosts)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.PublicKey = strings.TrimSpace(cfg.PublicKey)
	cfg.Profile = strings.TrimSpace(cfg.Profile)
	return cfg, nil
}

// account returns the account described by the environment. ok is false
// when IMBO_HOST is not set.
func (e envConfig) account() (Account, bool, error) {
	if len(e.Hosts) == 0 {
		return Account{}, false, nil
	}
	account := Account{
		Hosts:      e.Hosts,
		User:       e.User,
		PublicKey:  e.PublicKey,
		PrivateKey: e.PrivateKey,
	}.WithDefaults()
	if err := account.Validate(); err != nil {
		return Account{}, true, fmt.Errorf("environment variables IMBO_HOST, IMBO_USER and IMBO_PRIVATE_KEY must all be set: %w", err)
	}
	return account, true, nil
}

// DefaultDotEnvPath is the .env file loaded at startup.
func DefaultDotEnvPath() string {
	dir, err := userConfigDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, serviceName, ".env")
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables that are already set win. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ReadDotEnvAccount reads an account from a .env file without touching the
// process environment.
func ReadDotEnvAccount(path string) (Account, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return Account{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	account := Account{
		Hosts:      normalizeHosts(strings.Split(vars["IMBO_HOST"], ",")),
		User:       strings.TrimSpace(vars["IMBO_USER"]),
		PublicKey:  strings.TrimSpace(vars["IMBO_PUBLIC_KEY"]),
		PrivateKey: vars["IMBO_PRIVATE_KEY"],
	}.WithDefaults()
	if err := account.Validate(); err != nil {
		return Account{}, fmt.Errorf("%s: %w", path, err)
	}
	return account, nil
}

func normalizeHosts(hosts []string) []string {
	var out []string
	for _, h := range hosts {
		h = strings.TrimRight(strings.TrimSpace(h), "/")
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
