package config

// WithDefaults fills in the public key from the user when it is empty and
// normalizes the host list.
func (a Account) WithDefaults() Account {
	a.Hosts = normalizeHosts(a.Hosts)
	if a.PublicKey == "" {
		a.PublicKey = a.User
	}
	return a
}

// ResolveAccount returns the account for profile, or the active account
// when profile is empty. The result is validated.
func ResolveAccount(profile string) (Account, error) {
	var (
		account Account
		err     error
	)
	if profile != "" {
		account, err = LoadProfile(profile)
	} else {
		account, err = LoadAccount()
	}
	if err != nil {
		return Account{}, err
	}
	account = account.WithDefaults()
	if err := account.Validate(); err != nil {
		return Account{}, err
	}
	return account, nil
}
