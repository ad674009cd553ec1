package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/99designs/keyring"
)

func testKeyring(t *testing.T, initial []keyring.Item) *keyring.ArrayKeyring {
	t.Helper()
	return keyring.NewArrayKeyring(initial)
}

// withMockKeyring sets up a mock keyring for the duration of a test
func withMockKeyring(t *testing.T, ring keyring.Keyring) {
	t.Helper()
	original := openKeyring
	openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}
	t.Cleanup(func() { openKeyring = original })
}

// withFailingKeyring sets up a keyring that always fails to open
func withFailingKeyring(t *testing.T, err error) {
	t.Helper()
	original := openKeyring
	openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
		return nil, err
	}
	t.Cleanup(func() { openKeyring = original })
}

// clearImboEnv blanks every IMBO_* variable the account loader reads.
func clearImboEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"IMBO_HOST", "IMBO_USER", "IMBO_PUBLIC_KEY", "IMBO_PRIVATE_KEY", "IMBO_PROFILE"} {
		t.Setenv(k, "")
	}
}

func testAccount() Account {
	return Account{
		Hosts:      []string{"https://imbo.example.com"},
		User:       "christer",
		PublicKey:  "public",
		PrivateKey: "private",
	}
}

func TestProfileKey(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		expected string
	}{
		{name: "empty profile defaults to accountKey", profile: "", expected: accountKey},
		{name: "default profile uses accountKey", profile: "default", expected: accountKey},
		{name: "named profile uses prefix", profile: "staging", expected: profilePrefix + "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profileKey(tt.profile); got != tt.expected {
				t.Errorf("profileKey(%q) = %q, want %q", tt.profile, got, tt.expected)
			}
		})
	}
}

func TestNormalizeProfiles(t *testing.T) {
	got := normalizeProfiles([]string{"work", "", "default", "work", "  ", "prod"})
	for _, p := range got {
		if strings.TrimSpace(p) == "" {
			t.Fatalf("normalizeProfiles() kept blank entry: %v", got)
		}
	}
	seen := map[string]int{}
	for _, p := range got {
		seen[p]++
	}
	if seen["work"] != 1 {
		t.Errorf("work appears %d times, want 1", seen["work"])
	}
	if seen["prod"] != 1 || seen["default"] != 1 {
		t.Errorf("normalizeProfiles() = %v, want default, prod and work", got)
	}
}

func TestProfileIndexRoundTrip(t *testing.T) {
	ring := testKeyring(t, nil)

	profiles, err := loadProfileIndex(ring)
	if err != nil {
		t.Fatalf("loadProfileIndex() on empty ring: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("loadProfileIndex() = %v, want empty", profiles)
	}

	if err := saveProfileIndex(ring, []string{"default", "staging"}); err != nil {
		t.Fatalf("saveProfileIndex() error: %v", err)
	}
	profiles, err = loadProfileIndex(ring)
	if err != nil {
		t.Fatalf("loadProfileIndex() error: %v", err)
	}
	if !reflect.DeepEqual(profiles, []string{"default", "staging"}) {
		t.Errorf("loadProfileIndex() = %v", profiles)
	}
}

func TestAccountValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Account)
		wantErr string
	}{
		{name: "complete", mutate: func(*Account) {}},
		{name: "no hosts", mutate: func(a *Account) { a.Hosts = nil }, wantErr: "host"},
		{name: "no user", mutate: func(a *Account) { a.User = "" }, wantErr: "user"},
		{name: "no public key", mutate: func(a *Account) { a.PublicKey = "" }, wantErr: "public key"},
		{name: "no private key", mutate: func(a *Account) { a.PrivateKey = "" }, wantErr: "private key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := testAccount()
			tt.mutate(&account)
			err := account.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestAccountWithDefaults(t *testing.T) {
	account := Account{
		Hosts:      []string{" https://a.example.com/ ", "", "https://b.example.com"},
		User:       "christer",
		PrivateKey: "private",
	}.WithDefaults()

	if account.PublicKey != "christer" {
		t.Errorf("PublicKey = %q, want user as fallback", account.PublicKey)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(account.Hosts, want) {
		t.Errorf("Hosts = %v, want %v", account.Hosts, want)
	}

	explicit := testAccount().WithDefaults()
	if explicit.PublicKey != "public" {
		t.Errorf("PublicKey = %q, explicit key should be kept", explicit.PublicKey)
	}
}

func TestLoadAccountFromEnv(t *testing.T) {
	clearImboEnv(t)
	withFailingKeyring(t, errors.New("keyring should not be opened"))
	t.Setenv("IMBO_HOST", "http://a.example.com, http://b.example.com/")
	t.Setenv("IMBO_USER", "christer")
	t.Setenv("IMBO_PRIVATE_KEY", "private")

	account, err := LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount() error: %v", err)
	}
	want := Account{
		Hosts:      []string{"http://a.example.com", "http://b.example.com"},
		User:       "christer",
		PublicKey:  "christer",
		PrivateKey: "private",
	}
	if !reflect.DeepEqual(account, want) {
		t.Errorf("LoadAccount() = %+v, want %+v", account, want)
	}
}

func TestLoadAccountFromEnv_Incomplete(t *testing.T) {
	clearImboEnv(t)
	withFailingKeyring(t, errors.New("keyring should not be opened"))
	t.Setenv("IMBO_HOST", "http://imbo")
	t.Setenv("IMBO_USER", "christer")

	_, err := LoadAccount()
	if err == nil {
		t.Fatal("expected error when IMBO_PRIVATE_KEY is missing")
	}
	if !strings.Contains(err.Error(), "IMBO_PRIVATE_KEY") {
		t.Errorf("error = %q, want to mention IMBO_PRIVATE_KEY", err.Error())
	}
}

func TestLoadAccount_ProfileFromEnv(t *testing.T) {
	clearImboEnv(t)
	ring := testKeyring(t, nil)
	withMockKeyring(t, ring)

	staging := testAccount()
	staging.User = "staging-user"
	if err := SaveProfile("staging", staging); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}
	if err := SaveProfile("default", testAccount()); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}

	t.Setenv("IMBO_PROFILE", "staging")
	account, err := LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount() error: %v", err)
	}
	if account.User != "staging-user" {
		t.Errorf("User = %q, want profile from IMBO_PROFILE", account.User)
	}
}

func TestLoadAccount_CurrentProfile(t *testing.T) {
	clearImboEnv(t)
	ring := testKeyring(t, nil)
	withMockKeyring(t, ring)

	if err := SaveProfile("work", testAccount()); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}

	account, err := LoadAccount()
	if err != nil {
		t.Fatalf("LoadAccount() error: %v", err)
	}
	if !reflect.DeepEqual(account, testAccount()) {
		t.Errorf("LoadAccount() = %+v", account)
	}
}

func TestLoadAccount_NotConfigured(t *testing.T) {
	clearImboEnv(t)
	withMockKeyring(t, testKeyring(t, nil))

	_, err := LoadAccount()
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("LoadAccount() error = %v, want ErrNotConfigured", err)
	}
	if HasAccount() {
		t.Error("HasAccount() = true with empty keyring")
	}
}

func TestResolveAccount(t *testing.T) {
	clearImboEnv(t)
	withMockKeyring(t, testKeyring(t, nil))

	partial := testAccount()
	partial.PublicKey = ""
	if err := SaveProfile("legacy", partial); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}
	broken := testAccount()
	broken.PrivateKey = ""
	if err := SaveProfile("broken", broken); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}

	account, err := ResolveAccount("legacy")
	if err != nil {
		t.Fatalf("ResolveAccount() error: %v", err)
	}
	if account.PublicKey != account.User {
		t.Errorf("PublicKey = %q, want fallback to user", account.PublicKey)
	}

	if _, err := ResolveAccount("broken"); err == nil {
		t.Fatal("ResolveAccount() should reject a profile without private key")
	}
	if _, err := ResolveAccount("missing"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ResolveAccount(missing) error = %v, want ErrNotConfigured", err)
	}
}

func TestReadDotEnvAccount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "IMBO_HOST=https://a.example.com,https://b.example.com\nIMBO_USER=christer\nIMBO_PRIVATE_KEY=\"private key\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	account, err := ReadDotEnvAccount(path)
	if err != nil {
		t.Fatalf("ReadDotEnvAccount() error: %v", err)
	}
	if len(account.Hosts) != 2 || account.Hosts[1] != "https://b.example.com" {
		t.Errorf("Hosts = %v", account.Hosts)
	}
	if account.PublicKey != "christer" {
		t.Errorf("PublicKey = %q, want user fallback", account.PublicKey)
	}
	if account.PrivateKey != "private key" {
		t.Errorf("PrivateKey = %q", account.PrivateKey)
	}

	incomplete := filepath.Join(dir, "incomplete.env")
	if err := os.WriteFile(incomplete, []byte("IMBO_USER=christer\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDotEnvAccount(incomplete); err == nil {
		t.Fatal("expected error for .env without host")
	}
	if _, err := ReadDotEnvAccount(filepath.Join(dir, "nope.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearImboEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("IMBO_USER=from-file\nIMBO_PUBLIC_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv.Load never overrides variables that are set, even when blank,
	// so unset the one the file should provide.
	os.Unsetenv("IMBO_USER")
	t.Setenv("IMBO_PUBLIC_KEY", "from-env")

	if err := LoadDotEnv("", filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("IMBO_USER"); got != "from-file" {
		t.Errorf("IMBO_USER = %q, want from-file", got)
	}
	if got := os.Getenv("IMBO_PUBLIC_KEY"); got != "from-env" {
		t.Errorf("IMBO_PUBLIC_KEY = %q, existing value should win", got)
	}
}

func TestDefaultDotEnvPath(t *testing.T) {
	fakeConfigDir := t.TempDir()
	original := userConfigDir
	userConfigDir = func() (string, error) { return fakeConfigDir, nil }
	t.Cleanup(func() { userConfigDir = original })

	want := filepath.Join(fakeConfigDir, serviceName, ".env")
	if got := DefaultDotEnvPath(); got != want {
		t.Fatalf("DefaultDotEnvPath() = %q, want %q", got, want)
	}

	userConfigDir = func() (string, error) { return "", errors.New("no home") }
	if got := DefaultDotEnvPath(); got != "" {
		t.Fatalf("DefaultDotEnvPath() = %q, want empty on error", got)
	}
}

func TestKeyringConfig(t *testing.T) {
	t.Setenv(envKeyringBackend, "")
	t.Setenv(envCredentialsDir, "")

	cfg := keyringConfig()
	if cfg.ServiceName != serviceName {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, serviceName)
	}
	if cfg.FileDir == "" {
		t.Error("FileDir should be configured in auto backend mode")
	}
	if cfg.FilePasswordFunc == nil {
		t.Error("FilePasswordFunc should be configured in auto backend mode")
	}
}

func TestKeyringConfig_FileBackendOverride(t *testing.T) {
	t.Setenv(envKeyringBackend, "file")
	base := t.TempDir()
	t.Setenv(envCredentialsDir, base)

	cfg := keyringConfig()
	if len(cfg.AllowedBackends) != 1 || cfg.AllowedBackends[0] != keyring.FileBackend {
		t.Fatalf("AllowedBackends = %v, want [%s]", cfg.AllowedBackends, keyring.FileBackend)
	}
	if want := filepath.Join(base, "keyring"); cfg.FileDir != want {
		t.Fatalf("FileDir = %q, want %q", cfg.FileDir, want)
	}
}

func TestKeyringConfig_SystemBackendOverride(t *testing.T) {
	t.Setenv(envKeyringBackend, "system")

	cfg := keyringConfig()
	if cfg.FileDir != "" {
		t.Fatalf("FileDir = %q, want empty for system backend", cfg.FileDir)
	}
	if cfg.FilePasswordFunc != nil {
		t.Fatal("FilePasswordFunc should be nil for system backend")
	}
}

func TestShouldForceFileBackend(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		backend  string
		dbusAddr string
		want     bool
	}{
		{"explicit file backend always forces file", "darwin", keyringBackendFile, "ignored", true},
		{"auto backend on headless linux forces file", "linux", keyringBackendAuto, "", true},
		{"auto backend on linux desktop does not force file", "linux", keyringBackendAuto, "unix:path=/run/user/1000/bus", false},
		{"system backend never forces file", "linux", keyringBackendSystem, "", false},
		{"auto backend on non-linux does not force file", "windows", keyringBackendAuto, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldForceFileBackend(tt.goos, tt.backend, tt.dbusAddr); got != tt.want {
				t.Fatalf("shouldForceFileBackend(%q, %q, %q) = %v, want %v", tt.goos, tt.backend, tt.dbusAddr, got, tt.want)
			}
		})
	}
}

func TestKeyringBackendMode(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"", keyringBackendAuto},
		{"file", keyringBackendFile},
		{"FILE", keyringBackendFile},
		{"system", keyringBackendSystem},
		{"native", keyringBackendSystem},
		{"weird", keyringBackendAuto},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(envKeyringBackend, tt.value)
			if got := keyringBackendMode(); got != tt.want {
				t.Fatalf("keyringBackendMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyringFileDir_DefaultsToUserConfigDir(t *testing.T) {
	t.Setenv(envCredentialsDir, "")

	fakeConfigDir := t.TempDir()
	original := userConfigDir
	userConfigDir = func() (string, error) { return fakeConfigDir, nil }
	t.Cleanup(func() { userConfigDir = original })

	want := filepath.Join(fakeConfigDir, serviceName, "keyring")
	if got := keyringFileDir(); got != want {
		t.Fatalf("keyringFileDir() = %q, want %q", got, want)
	}
}

func TestKeyringFilePassword(t *testing.T) {
	t.Run("from env", func(t *testing.T) {
		t.Setenv(envKeyringPassword, "env-pass")
		password, err := keyringFilePassword("prompt")
		if err != nil {
			t.Fatalf("keyringFilePassword() unexpected error: %v", err)
		}
		if password != "env-pass" {
			t.Fatalf("keyringFilePassword() = %q, want env-pass", password)
		}
	})

	t.Run("non-interactive without env", func(t *testing.T) {
		t.Setenv(envKeyringPassword, "")
		original := stdinHasTTY
		stdinHasTTY = func() bool { return false }
		t.Cleanup(func() { stdinHasTTY = original })

		_, err := keyringFilePassword("prompt")
		if err == nil || !strings.Contains(err.Error(), envKeyringPassword) {
			t.Fatalf("error = %v, want to mention %s", err, envKeyringPassword)
		}
	})
}

func TestProfileLifecycle(t *testing.T) {
	clearImboEnv(t)
	withMockKeyring(t, testKeyring(t, nil))

	if err := SaveAccount(testAccount()); err != nil {
		t.Fatalf("SaveAccount() error: %v", err)
	}
	work := testAccount()
	work.Hosts = []string{"https://work.example.com"}
	if err := SaveProfile("work", work); err != nil {
		t.Fatalf("SaveProfile() error: %v", err)
	}

	current, err := CurrentProfile()
	if err != nil || current != "work" {
		t.Fatalf("CurrentProfile() = %q, %v; want work", current, err)
	}

	profiles, err := ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles() error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("ListProfiles() = %v, want two profiles", profiles)
	}

	loaded, err := LoadProfile("work")
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}
	if loaded.Hosts[0] != "https://work.example.com" {
		t.Errorf("LoadProfile() hosts = %v", loaded.Hosts)
	}

	if err := SetCurrentProfile("default"); err != nil {
		t.Fatalf("SetCurrentProfile() error: %v", err)
	}
	if err := DeleteProfile("work"); err != nil {
		t.Fatalf("DeleteProfile() error: %v", err)
	}
	if _, err := LoadProfile("work"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("LoadProfile(work) after delete error = %v", err)
	}

	if err := DeleteAccount(); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
	if HasAccount() {
		t.Error("HasAccount() = true after deleting every profile")
	}
}

func TestDeleteProfile_SwitchesCurrent(t *testing.T) {
	clearImboEnv(t)
	withMockKeyring(t, testKeyring(t, nil))

	for _, name := range []string{"alpha", "beta"} {
		if err := SaveProfile(name, testAccount()); err != nil {
			t.Fatalf("SaveProfile(%s) error: %v", name, err)
		}
	}
	if err := DeleteProfile("beta"); err != nil {
		t.Fatalf("DeleteProfile() error: %v", err)
	}
	current, err := CurrentProfile()
	if err != nil {
		t.Fatal(err)
	}
	if current != "alpha" {
		t.Errorf("CurrentProfile() = %q, want alpha", current)
	}
}

func TestKeyringOpenFailure(t *testing.T) {
	clearImboEnv(t)
	withFailingKeyring(t, errors.New("locked"))

	if err := SaveProfile("x", testAccount()); err == nil || !strings.Contains(err.Error(), "open keyring") {
		t.Errorf("SaveProfile() error = %v", err)
	}
	if _, err := LoadProfile("x"); err == nil {
		t.Error("LoadProfile() expected error")
	}
	if _, err := ListProfiles(); err == nil {
		t.Error("ListProfiles() expected error")
	}
	if _, err := CurrentProfile(); err == nil {
		t.Error("CurrentProfile() expected error")
	}
	if err := DeleteProfile("x"); err == nil {
		t.Error("DeleteProfile() expected error")
	}
}

func TestLoadProfile_CorruptData(t *testing.T) {
	ring := testKeyring(t, []keyring.Item{{Key: profileKey("bad"), Data: []byte("{not json")}})
	withMockKeyring(t, ring)

	if _, err := LoadProfile("bad"); err == nil || !strings.Contains(err.Error(), "unmarshal") {
		t.Fatalf("LoadProfile() error = %v, want unmarshal error", err)
	}
}
