package api

import (
	"context"
	"net/http"
)

// Get fetches information about the configured user.
func (s UserService) Get(ctx context.Context) (User, error) {
	return getUser(ctx, s)
}

func getUser(ctx context.Context, r Requester) (User, error) {
	m, err := r.do(ctx, http.MethodGet, r.userPath(".json"), nil)
	if err != nil {
		return User{}, err
	}
	return NewUser(m), nil
}
