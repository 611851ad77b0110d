package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rubiojr/wsearch/pkg/search"
)

// DefaultUserHeader names the header holding the email of the calling user.
const DefaultUserHeader = "X-Wsearch-User"

// ErrNoUser is returned by a UserResolver when the request carries no known
// user.
var ErrNoUser = errors.New("no authenticated user")

// UserResolver identifies the user making a request.
type UserResolver interface {
	ResolveUser(r *http.Request) (search.User, error)
}

// Users loads users by email.
type Users interface {
	GetUserByEmail(ctx context.Context, email string) (search.User, error)
}

// HeaderUserResolver trusts a header set by an authenticating proxy in front
// of the API.
type HeaderUserResolver struct {
	Header string
	Users  Users
}

// HeaderName returns the header the user email is read from.
func (h HeaderUserResolver) HeaderName() string {
	if h.Header == "" {
		return DefaultUserHeader
	}
	return h.Header
}

func (h HeaderUserResolver) ResolveUser(r *http.Request) (search.User, error) {
	email := strings.TrimSpace(r.Header.Get(h.HeaderName()))
	if email == "" {
		return search.User{}, ErrNoUser
	}
	user, err := h.Users.GetUserByEmail(r.Context(), email)
	if errors.Is(err, search.ErrUserNotFound) {
		return search.User{}, fmt.Errorf("%s: %w", email, ErrNoUser)
	}
	if err != nil {
		return search.User{}, err
	}
	return user, nil
}
