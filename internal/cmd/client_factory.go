package cmd

import (
	"fmt"
	"time"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/config"
)

type clientFactory struct {
	profile   string
	timeout   time.Duration
	userAgent string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		profile:   flags.Profile,
		timeout:   flags.Timeout,
		userAgent: fmt.Sprintf("imbo-cli/%s", version),
	}
}

func (f *clientFactory) account() (*api.Client, error) {
	account, err := config.ResolveAccount(f.profile)
	if err != nil {
		return nil, err
	}
	return f.newClient(account), nil
}

func (f *clientFactory) newClient(account config.Account) *api.Client {
	client := api.New(account.Hosts, api.Credentials{
		User:       account.User,
		PublicKey:  account.PublicKey,
		PrivateKey: account.PrivateKey,
	})
	if f.timeout > 0 {
		client.HTTP.Timeout = f.timeout
	}
	if f.userAgent != "" {
		client.UserAgent = f.userAgent
	}
	return client
}
